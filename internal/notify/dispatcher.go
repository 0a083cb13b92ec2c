// Package notify sends templated admin notifications to users, writing one
// notifications row per resolved recipient.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"

	"ogabook-admin/internal/instrument"
	"ogabook-admin/internal/store"
)

var (
	ErrTemplateNotFound = errors.New("template not found or inactive")
	ErrNoRecipients     = errors.New("no users found for the provided ids")
	ErrMissingContent   = errors.New("title and message are required")
)

const (
	notificationType = "admin_notification"
	recipientRole    = "manager"
	fallbackName     = "User"
)

var recipientColumns = []string{"id", "username", "email", "first_name", "last_name", "phone"}

// Job is one send request: the recipients plus either a template reference
// or literal content. Explicit Title and Message override the template's.
type Job struct {
	RecipientIDs []string
	TemplateID   string
	Title        string
	Message      string
}

// Recipient is a resolved user with the profile fields used for rendering.
type Recipient struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// CustomerName is "first last" when either is set, else the username, else "User".
func (r Recipient) CustomerName() string {
	if name := strings.TrimSpace(r.FirstName + " " + r.LastName); name != "" {
		return name
	}
	if r.Username != "" {
		return r.Username
	}
	return fallbackName
}

type Sent struct {
	UserID         string `json:"userId"`
	NotificationID any    `json:"notificationId"`
	UserEmail      string `json:"userEmail"`
	UserName       string `json:"userName"`
}

type Failure struct {
	UserID string `json:"userId"`
	Error  string `json:"error"`
}

// Result aggregates the per-recipient outcomes of a send. A partial
// success is a normal result, not an error.
type Result struct {
	Notifications []Sent    `json:"notifications"`
	Errors        []Failure `json:"errors,omitempty"`
}

// outcome is the result of writing one recipient's row; exactly one field is set.
type outcome struct {
	sent *Sent
	err  *Failure
}

type Dispatcher struct {
	store       *store.Store
	concurrency int
	now         func() time.Time
}

func NewDispatcher(s *store.Store, concurrency int) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{store: s, concurrency: concurrency, now: time.Now}
}

// ResolveTemplate returns the title and message to send. Without a template
// reference the job's own content is used as is.
func (d *Dispatcher) ResolveTemplate(ctx context.Context, job Job) (string, string, error) {
	title, message := job.Title, job.Message
	if job.TemplateID != "" {
		pb := d.store.Dialect.NewParamBuilder()
		sql := fmt.Sprintf("SELECT title, message FROM notification_templates WHERE %s = %s AND is_active = %s",
			d.store.Dialect.TextExpr("id"), pb.Add(job.TemplateID), pb.Add(true))
		row, err := store.QueryRow(ctx, d.store.DB, sql, pb.Params()...)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", "", ErrTemplateNotFound
			}
			return "", "", fmt.Errorf("load template %s: %w", job.TemplateID, err)
		}
		if title == "" {
			title = text(row["title"])
		}
		if message == "" {
			message = text(row["message"])
		}
	}
	if title == "" || message == "" {
		return "", "", ErrMissingContent
	}
	return title, message, nil
}

// ResolveRecipients loads the users named by ids. Ids with no matching
// user are left out.
func (d *Dispatcher) ResolveRecipients(ctx context.Context, ids []string) ([]Recipient, error) {
	rows, err := d.store.FindByIDs(ctx, "users", recipientColumns, ids)
	if err != nil {
		return nil, err
	}
	recipients := make([]Recipient, 0, len(rows))
	for _, row := range rows {
		recipients = append(recipients, Recipient{
			ID:        text(row["id"]),
			Username:  text(row["username"]),
			Email:     text(row["email"]),
			FirstName: text(row["first_name"]),
			LastName:  text(row["last_name"]),
			Phone:     text(row["phone"]),
		})
	}
	return recipients, nil
}

// Render substitutes the recipient's profile fields into body. Absent
// fields render empty, except {username} which falls back to "User".
func Render(body string, r Recipient) string {
	username := r.Username
	if username == "" {
		username = fallbackName
	}
	return strings.NewReplacer(
		"{username}", username,
		"{first_name}", r.FirstName,
		"{last_name}", r.LastName,
		"{email}", r.Email,
	).Replace(body)
}

// Send resolves the job and writes one notification per recipient. Rows
// are written concurrently; a failed write is reported in Result.Errors
// and does not stop the others.
func (d *Dispatcher) Send(ctx context.Context, job Job) (*Result, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "notify", "dispatcher", "notifications.send")
	defer span.End()
	span.SetMetadata("requested", len(job.RecipientIDs))

	title, message, err := d.ResolveTemplate(ctx, job)
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}

	recipients, err := d.ResolveRecipients(ctx, job.RecipientIDs)
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}
	if len(recipients) == 0 {
		span.SetStatus("error")
		return nil, ErrNoRecipients
	}

	mapper := iter.Mapper[Recipient, outcome]{MaxGoroutines: d.concurrency}
	outcomes := mapper.Map(recipients, func(r *Recipient) outcome {
		id, err := d.insert(ctx, *r, title, Render(message, *r))
		if err != nil {
			instrument.Logger(ctx).WithError(err).WithField("recipient", r.ID).Error("notification write failed")
			return outcome{err: &Failure{UserID: r.ID, Error: err.Error()}}
		}
		return outcome{sent: &Sent{UserID: r.ID, NotificationID: id, UserEmail: r.Email, UserName: r.Username}}
	})

	result := &Result{Notifications: make([]Sent, 0, len(outcomes))}
	for _, o := range outcomes {
		if o.err != nil {
			result.Errors = append(result.Errors, *o.err)
			continue
		}
		result.Notifications = append(result.Notifications, *o.sent)
	}

	span.SetMetadata("sent", len(result.Notifications))
	span.SetMetadata("failed", len(result.Errors))
	if len(result.Errors) > 0 {
		span.SetStatus("partial")
	} else {
		span.SetStatus("ok")
	}
	return result, nil
}

func (d *Dispatcher) insert(ctx context.Context, r Recipient, title, body string) (any, error) {
	pb := d.store.Dialect.NewParamBuilder()
	now := d.now()
	values := []string{
		pb.Add(r.ID),
		pb.Add("notif-" + uuid.NewString()),
		pb.Add(fmt.Sprintf("NOTIF-%d", now.UnixMilli())),
		pb.Add(r.ID),
		pb.Add(r.CustomerName()),
		pb.Add(r.Phone),
		pb.Add(title),
		pb.Add(body),
		pb.Add(notificationType),
		pb.Add(recipientRole),
		pb.Add(0),
		pb.Add(0),
		pb.Add(0),
		pb.Add(false),
		d.store.Dialect.NowExpr(),
	}
	sql := `INSERT INTO notifications (
		account_id, transaction_id, receipt_number, customer_id, customer_name, customer_phone,
		admin_title, admin_message, type, user_role, total, paid_amount, outstanding_balance, read, created_at
	) VALUES (` + strings.Join(values, ", ") + `) RETURNING id`

	row, err := store.QueryRow(ctx, d.store.DB, sql, pb.Params()...)
	if err != nil {
		return nil, err
	}
	return row["id"], nil
}

func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
