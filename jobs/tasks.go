package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/hibiken/asynq"

	"github.com/barpos/barpos/internal/money"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueMail carries outbound notification mail.
	QueueMail = "mail"

	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeDebtNotice notifies a user whose balance just went negative.
	TaskTypeDebtNotice = "notify:debt"
	// TaskTypeFineWarning warns a user about an upcoming fine.
	TaskTypeFineWarning = "notify:fine_warning"
	// TaskTypeDebtSweep mails a notice to everyone currently in debt. It
	// is enqueued by the scheduler, not by request handlers.
	TaskTypeDebtSweep = "notify:debt_sweep"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// DebtNoticePayload carries a debt notification.
type DebtNoticePayload struct {
	UserID  int64       `json:"userId"`
	Balance money.Money `json:"balance"`
}

// FineWarningPayload carries an upcoming-fine warning.
type FineWarningPayload struct {
	UserID        int64       `json:"userId"`
	Fine          money.Money `json:"fine"`
	Balance       money.Money `json:"balance"`
	ReferenceDate time.Time   `json:"referenceDate"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewDebtNoticeTask constructs a debt notice task.
func NewDebtNoticeTask(payload DebtNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDebtNotice, data), nil
}

// NewFineWarningTask constructs a fine warning task.
func NewFineWarningTask(payload FineWarningPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeFineWarning, data), nil
}

// NewDebtSweepTask constructs the scheduled debt sweep task. It carries
// no payload; the handler reads current state.
func NewDebtSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeDebtSweep, nil)
}

// AddressBook resolves a user's email address for notification mail.
type AddressBook interface {
	EmailOf(ctx context.Context, userID int64) (string, error)
}

// DebtBook lists every user in debt past the notice threshold.
type DebtBook interface {
	ListDebtors(ctx context.Context, asOf time.Time) (map[int64]money.Money, error)
}

// Mailer delivers notification mail over SMTP.
type Mailer struct {
	Addr string // host:port
	From string
}

// Send writes one message to the configured relay.
func (m *Mailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	if err := smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("jobs: send mail to %s: %w", to, err)
	}
	return nil
}

// TaskProcessor turns queued notification tasks into outbound mail.
type TaskProcessor struct {
	mailer    *Mailer
	addresses AddressBook
	debts     DebtBook
}

// NewTaskProcessor constructs a TaskProcessor. debts may be nil when the
// scheduled sweep is disabled.
func NewTaskProcessor(mailer *Mailer, addresses AddressBook, debts DebtBook) *TaskProcessor {
	return &TaskProcessor{mailer: mailer, addresses: addresses, debts: debts}
}

// HandleSendEmail processes TaskTypeSendEmail tasks.
func (p *TaskProcessor) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	return p.mailer.Send(payload.To, payload.Subject, payload.Body)
}

// HandleDebtNotice processes TaskTypeDebtNotice tasks.
func (p *TaskProcessor) HandleDebtNotice(ctx context.Context, t *asynq.Task) error {
	var payload DebtNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	to, err := p.addresses.EmailOf(ctx, payload.UserID)
	if err != nil {
		return err
	}
	body := fmt.Sprintf(
		"Your balance dropped to %s. Please top up to avoid a fine.",
		payload.Balance.String())
	return p.mailer.Send(to, "Your balance is negative", body)
}

// HandleFineWarning processes TaskTypeFineWarning tasks.
func (p *TaskProcessor) HandleFineWarning(ctx context.Context, t *asynq.Task) error {
	var payload FineWarningPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	to, err := p.addresses.EmailOf(ctx, payload.UserID)
	if err != nil {
		return err
	}
	body := fmt.Sprintf(
		"Your balance was %s on %s. A fine of %s will be handed out unless you top up.",
		payload.Balance.String(),
		payload.ReferenceDate.Format("2006-01-02"),
		payload.Fine.String())
	return p.mailer.Send(to, "Upcoming fine", body)
}

// HandleDebtSweep processes the scheduled TaskTypeDebtSweep task: one
// notice per user currently past the debt threshold. A returned error
// retries the whole sweep, so individual send failures are joined and
// surfaced together.
func (p *TaskProcessor) HandleDebtSweep(ctx context.Context, t *asynq.Task) error {
	if p.debts == nil {
		return nil
	}
	debtors, err := p.debts.ListDebtors(ctx, time.Now())
	if err != nil {
		return err
	}
	var errs []error
	for userID, balance := range debtors {
		to, err := p.addresses.EmailOf(ctx, userID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		body := fmt.Sprintf(
			"Your balance is %s. Please top up to avoid a fine.",
			balance.String())
		if err := p.mailer.Send(to, "Your balance is negative", body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
