package notify

import (
	"context"
	"fmt"

	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// Dispatcher delivers reservation confirmations over the holder's chosen
// channel. Best-effort, at-most-once: a failed send is logged and returned as
// a warning, never as a blocking error for the reservation itself.
type Dispatcher struct {
	Email  EmailSender
	SMS    SMSSender
	Logger *logger.Logger
}

func NewDispatcher(email EmailSender, sms SMSSender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{Email: email, SMS: sms, Logger: log}
}

// DispatchConfirmation sends the reservation confirmation with the QR link (if
// one exists yet) via the reservation's delivery channel.
func (d *Dispatcher) DispatchConfirmation(ctx context.Context, event *models.Event, res *models.Reservation) error {
	switch res.DeliveryChannel {
	case models.ChannelSMS:
		body := smsBody(event, res)
		if err := d.SMS.Send(ctx, res.Phone, body); err != nil {
			d.Logger.Warn("NOTIFY", fmt.Sprintf("SMS confirmation for reservation %s failed: %v", res.ID, err))
			return fmt.Errorf("sms send failed: %w", err)
		}
		d.Logger.LogNotify("sms", res.Phone, fmt.Sprintf("confirmation sent for reservation %s", res.ID))
	default:
		subject := fmt.Sprintf("Your reservation for %s is confirmed", event.Title)
		body := emailBody(event, res)
		if err := d.Email.Send(ctx, res.Email, subject, body); err != nil {
			d.Logger.Warn("NOTIFY", fmt.Sprintf("email confirmation for reservation %s failed: %v", res.ID, err))
			return fmt.Errorf("email send failed: %w", err)
		}
		d.Logger.LogNotify("email", res.Email, fmt.Sprintf("confirmation sent for reservation %s", res.ID))
	}
	return nil
}

func emailBody(event *models.Event, res *models.Reservation) string {
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nYour reservation for %s is confirmed.\r\n\r\nWhen: %s\r\nWhere: %s\r\nTickets: %d x %s\r\n",
		res.FullName,
		event.Title,
		event.StartTime.Format("Monday, Jan 2 2006 at 3:04 PM"),
		event.Location,
		res.NumTickets,
		res.TicketType,
	)
	if res.QRCodeURL != "" {
		body += fmt.Sprintf("\r\nShow this code at the door: %s\r\n", res.QRCodeURL)
	} else {
		body += "\r\nYour entry code is being prepared and will appear on your confirmation page shortly.\r\n"
	}
	body += fmt.Sprintf("\r\nThis reservation is valid until %s.\r\n", res.ExpirationTime.Format("Jan 2 2006 3:04 PM"))
	return body
}

func smsBody(event *models.Event, res *models.Reservation) string {
	if res.QRCodeURL != "" {
		return fmt.Sprintf("%s: reservation confirmed for %d ticket(s). Entry code: %s", event.Title, res.NumTickets, res.QRCodeURL)
	}
	return fmt.Sprintf("%s: reservation confirmed for %d ticket(s). Your entry code will be ready shortly.", event.Title, res.NumTickets)
}
