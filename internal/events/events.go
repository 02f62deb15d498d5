package events

import "github.com/bwmarrin/snowflake"

const (
	TopicPeriodCompleted      = "period.completed"
	TopicWorkCompleted        = "work.completed"
	TopicInvoiceStatusChanged = "invoice.status_changed"
)

// PeriodCompleted fires when the last pending task of a recurring work's
// period flips to completed.
type PeriodCompleted struct {
	OrgID    snowflake.ID
	WorkID   snowflake.ID
	PeriodID snowflake.ID
}

func (PeriodCompleted) Topic() string { return TopicPeriodCompleted }

// WorkCompleted fires when all tasks of a non-recurring work complete.
type WorkCompleted struct {
	OrgID  snowflake.ID
	WorkID snowflake.ID
}

func (WorkCompleted) Topic() string { return TopicWorkCompleted }

// InvoiceStatusChanged fires after an invoice status update commits.
type InvoiceStatusChanged struct {
	OrgID     snowflake.ID
	InvoiceID snowflake.ID
	From      string
	To        string
}

func (InvoiceStatusChanged) Topic() string { return TopicInvoiceStatusChanged }
