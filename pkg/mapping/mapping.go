package mapping

import (
	"github.com/chris/credit-reconciliation/pkg/api"
	"github.com/chris/credit-reconciliation/pkg/checkout"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
)

// ToDomainCheckoutRequest converts an API CreateSessionRequest to a checkout request.
func ToDomainCheckoutRequest(req *api.CreateSessionRequest) checkout.Request {
	out := checkout.Request{
		Plan:   req.Plan,
		UserID: req.UserId,
	}
	if req.Email != nil {
		out.Email = *req.Email
	}
	return out
}

// ToApiCreateSessionResponse converts a created checkout session to the API model.
func ToApiCreateSessionResponse(s *checkout.Session) *api.CreateSessionResponse {
	return &api.CreateSessionResponse{
		SessionId:   s.SessionID,
		RedirectUrl: s.RedirectURL,
	}
}

// ToApiVerifySessionResponse converts a reconcile result to the API model.
// Optional fields are only set when they carry information.
func ToApiVerifySessionResponse(res *reconciler.Result) *api.VerifySessionResponse {
	out := &api.VerifySessionResponse{
		SessionId:        res.SessionID,
		AlreadyProcessed: res.AlreadyProcessed,
		Confirmed:        res.Confirmed,
		Status:           api.SessionStatus(res.Status),
		NewBalance:       res.NewBalance,
	}
	if res.CreditsGranted > 0 {
		credits := res.CreditsGranted
		out.CreditsGranted = &credits
	}
	if res.PaymentStatus != "" {
		ps := string(res.PaymentStatus)
		out.PaymentStatus = &ps
	}
	if res.Plan != "" {
		plan := string(res.Plan)
		out.Plan = &plan
	}
	return out
}

// ToApiPaymentSession converts a domain PaymentSession to the API model.
func ToApiPaymentSession(s *models.PaymentSession) *api.PaymentSession {
	out := &api.PaymentSession{
		SessionId:   s.SessionId,
		UserId:      s.UserId,
		Plan:        string(s.Plan),
		Credits:     s.Credits,
		Amount:      s.Amount,
		Currency:    s.Currency,
		Status:      api.SessionStatus(s.Status),
		ProcessedAt: s.ProcessedAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.Email != "" {
		email := s.Email
		out.Email = &email
	}
	return out
}

// ToApiBalance converts a domain UserBalance to the API model.
func ToApiBalance(b *models.UserBalance) *api.Balance {
	out := &api.Balance{
		UserId:        b.UserId,
		CreditBalance: b.CreditBalance,
	}
	if !b.UpdatedAt.IsZero() {
		updated := b.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}

// ToApiLedgerEntry converts a domain LedgerEntry to the API model.
func ToApiLedgerEntry(entry *models.LedgerEntry) *api.LedgerEntry {
	return &api.LedgerEntry{
		EntryId:     entry.EntryID,
		SessionId:   entry.SessionID,
		UserId:      entry.UserID,
		Plan:        string(entry.Plan),
		Credits:     entry.Credits,
		Description: entry.Description,
		Timestamp:   entry.Timestamp,
	}
}
