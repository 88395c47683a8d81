package testdata

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/glowdesk/glowdesk/pkg/models"
	"github.com/glowdesk/glowdesk/pkg/store"
)

// ClientGeneratorConfig configures client generation parameters
type ClientGeneratorConfig struct {
	Count            int
	EmailChance      float64 // 0.0-1.0 (probability of having an email)
	PhoneChance      float64
	EmailOptInChance float64
	SMSOptInChance   float64
	// MaxAppointments bounds how many historical appointments each client gets.
	MaxAppointments int
	// HistoryDays is how far back appointment history and signup dates reach.
	HistoryDays int
}

// DefaultClientGeneratorConfig returns a realistic mixed population.
func DefaultClientGeneratorConfig(count int) ClientGeneratorConfig {
	return ClientGeneratorConfig{
		Count:            count,
		EmailChance:      0.9,
		PhoneChance:      0.85,
		EmailOptInChance: 0.7,
		SMSOptInChance:   0.5,
		MaxAppointments:  8,
		HistoryDays:      365,
	}
}

var salonServices = []string{
	"Haircut", "Color & Highlights", "Blowout", "Manicure", "Pedicure",
	"Gel Nails", "Facial", "Deep Tissue Massage", "Swedish Massage",
	"Waxing", "Lash Extensions", "Brow Shaping",
}

var appointmentStatuses = []string{
	models.AppointmentCompleted,
	models.AppointmentCompleted,
	models.AppointmentCompleted,
	models.AppointmentBooked,
	models.AppointmentCancelled,
	models.AppointmentNoShow,
}

// GenerateClients seeds the store with fake clients and appointment history.
func GenerateClients(ctx context.Context, st store.Store, cfg ClientGeneratorConfig) ([]*models.Client, error) {
	faker := gofakeit.New(time.Now().UnixNano())
	clients := make([]*models.Client, 0, cfg.Count)

	for i := 0; i < cfg.Count; i++ {
		client := &models.Client{
			FirstName:       faker.FirstName(),
			LastName:        faker.LastName(),
			Role:            models.RoleClient,
			EmailPromoOptIn: rand.Float64() < cfg.EmailOptInChance,
			SMSPromoOptIn:   rand.Float64() < cfg.SMSOptInChance,
			CreatedAt:       time.Now().AddDate(0, 0, -rand.Intn(cfg.HistoryDays+1)),
		}
		if rand.Float64() < cfg.EmailChance {
			client.Email = strings.ToLower(fmt.Sprintf("%s.%s%d@%s",
				client.FirstName, client.LastName, rand.Intn(1000), faker.DomainName()))
		}
		if rand.Float64() < cfg.PhoneChance {
			client.Phone = fmt.Sprintf("+1%d%07d", 200+rand.Intn(800), rand.Intn(10000000))
		}

		if err := st.CreateClient(ctx, client); err != nil {
			return clients, fmt.Errorf("failed to create client: %w", err)
		}
		clients = append(clients, client)

		visits := rand.Intn(cfg.MaxAppointments + 1)
		for v := 0; v < visits; v++ {
			appt := &models.Appointment{
				ClientID:  client.ID,
				StaffID:   1 + rand.Intn(5),
				Service:   salonServices[rand.Intn(len(salonServices))],
				StartTime: time.Now().AddDate(0, 0, -rand.Intn(cfg.HistoryDays+1)),
				Status:    appointmentStatuses[rand.Intn(len(appointmentStatuses))],
			}
			if err := st.CreateAppointment(ctx, appt); err != nil {
				return clients, fmt.Errorf("failed to create appointment: %w", err)
			}
		}
	}

	return clients, nil
}
