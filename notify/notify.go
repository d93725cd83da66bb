/*
Package notify delivers change-request notifications to the supervisors.

PURPOSE:
  Implements scheduling.Notifier. Delivery is fire-and-forget: the
  workflow never waits on the mail provider and a delivery failure never
  fails the surrounding submission.

IMPLEMENTATIONS:
  Console:  logs the notification, used in dev and tests
  SendGrid: sends a real email asynchronously
*/
package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/lrcstaff/shift-engine/scheduling"
)

// =============================================================================
// CONSOLE
// =============================================================================

// Console logs notifications instead of sending them.
type Console struct {
	Logger *log.Logger
}

func NewConsole(logger *log.Logger) *Console {
	if logger == nil {
		logger = log.Default()
	}
	return &Console{Logger: logger}
}

func (c *Console) ShiftRequestSubmitted(_ context.Context, r scheduling.ChangeRequest) {
	c.Logger.Printf("shift request %s submitted by %s (%s, drop=%t)",
		r.ID, r.NewPosition.Person.Name(), r.NewPosition.Label(), r.IsDrop)
}

// =============================================================================
// SENDGRID
// =============================================================================

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// SendGrid emails the supervisors about each new request. Sends run on
// their own goroutine; errors are logged and dropped.
type SendGrid struct {
	key    string
	from   *sgmail.Email
	to     []*sgmail.Email
	logger *log.Logger
}

func NewSendGrid(key, fromEmail string, supervisorEmails []string, logger *log.Logger) *SendGrid {
	if logger == nil {
		logger = log.Default()
	}
	svc := &SendGrid{
		key:    key,
		from:   sgmail.NewEmail("LRC Scheduling", fromEmail),
		logger: logger,
	}
	for _, addr := range supervisorEmails {
		svc.to = append(svc.to, sgmail.NewEmail("", addr))
	}
	return svc
}

func (svc *SendGrid) ShiftRequestSubmitted(_ context.Context, r scheduling.ChangeRequest) {
	go svc.send(r)
}

func (svc *SendGrid) send(r scheduling.ChangeRequest) {
	action := "change"
	if r.IsDrop {
		action = "drop"
	} else if r.ShiftToUpdate == nil {
		action = "new shift"
	}
	subject := fmt.Sprintf("[LRC] %s request from %s", action, r.NewPosition.Person.Name())
	body := fmt.Sprintf(
		"%s (%s) submitted a %s request for %s.\n\nReason: %s\n",
		r.NewPosition.Person.Name(), r.NewPosition.Label(), action,
		r.NewStart.Format("Mon Jan 2, 3:04 pm"), r.Reason,
	)

	p := sgmail.NewPersonalization()
	p.Subject = subject
	for _, to := range svc.to {
		p.AddTos(to)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", body))

	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		svc.logger.Printf("sendgrid: request %s notification failed: %v", r.ID, err)
		return
	}
	if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Printf("sendgrid: request %s notification rejected: %d %s", r.ID, res.StatusCode, res.Body)
	}
}
