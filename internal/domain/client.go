package domain

import "time"

type ClientStatus string

const (
	ClientStatusActive      ClientStatus = "active"
	ClientStatusNotEligible ClientStatus = "not_eligible"
)

// Client is a borrower, keyed by national ID.
type Client struct {
	NationalID string
	FullName   string

	Phone   string
	Email   string
	Address string

	Employer    string
	JobTitle    string
	JobCategory string

	BankName    string
	BankAccount string
	BankAlias   string

	ReferrerName string
	Status       ClientStatus
	CreatedAt    time.Time
}

func (c *Client) Eligible() bool {
	return c.Status != ClientStatusNotEligible
}
