package notifications

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"wicked-backend/internal/application/emails"
	"wicked-backend/internal/application/invoices"
	"wicked-backend/internal/application/settings"
	"wicked-backend/internal/application/statuses"
	"wicked-backend/internal/domain"
	"wicked-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
)

const defaultBatchSize = 25

// Site carries the site-level values rendered into notification tokens and
// public invoice links.
type Site struct {
	Name        string
	URL         string
	AdminEmail  string
	InvoiceSlug string
}

// Engine evaluates notification rules against the invoice store and
// dispatches matching notifications, deduplicated by sent-markers.
type Engine struct {
	Rules    *Rules
	Invoices *invoices.Service
	Resolver *statuses.Resolver
	Settings *settings.Service
	Mailer   emails.Sender
	Lock     RunLock
	Site     Site

	// BatchSize bounds how many invoices one rule processes per run.
	BatchSize int

	// Nudge schedules an out-of-band engine run; optional.
	Nudge func(delay time.Duration)
}

// Run is one engine tick: for each enabled rule, in order, find unmarked
// matching invoices, apply the advanced filter, dispatch, and mark.
//
// A dispatch failure leaves the marker unset so the pair retries next
// cycle; one invoice failing never aborts the rest of the batch. When the
// run lock is held elsewhere the tick is a silent no-op.
func (e *Engine) Run(ctx context.Context) error {
	ok, release, err := e.Lock.TryAcquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	defer release()

	debug := e.Settings.DebugEnabled(ctx)
	batch := e.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	for _, rule := range e.Rules.Effective(ctx) {
		if !rule.Enabled {
			continue
		}

		expanded := e.Resolver.ExpandStatuses(rule.Match.Values)
		matches, err := e.Invoices.FindForRule(ctx, expanded, rule.ID, batch)
		if err != nil {
			log.Error().Err(err).Str("rule", rule.ID).Msg("notifications: rule query failed")
			continue
		}

		now := time.Now()
		for _, inv := range matches {
			if !e.advancedMatch(&inv, rule.Advanced, now) {
				continue
			}
			if !e.sendForRule(ctx, rule, &inv, debug) {
				continue
			}
			if err := e.Invoices.MarkSent(ctx, inv.ID, rule.ID); err != nil {
				log.Error().Err(err).Str("rule", rule.ID).Uint("invoice_id", inv.ID).Msg("notifications: marker write failed")
				continue
			}
			if debug {
				log.Info().Str("rule", rule.ID).Uint("invoice_id", inv.ID).Msg("notifications: sent")
			}
		}
	}
	return nil
}

// advancedMatch applies the rule's secondary filter: a whole-day comparison
// of the chosen date field against now, optionally AND a positive
// deposit-required amount. An invoice with no resolvable date never
// matches.
func (e *Engine) advancedMatch(inv *domain.Invoice, adv Advanced, now time.Time) bool {
	if !adv.Enabled {
		return true
	}

	var base *time.Time
	switch adv.DateField {
	case DateFieldDue:
		base = inv.DueDate
	case DateFieldPost:
		t := inv.CreatedAt
		base = &t
	default:
		base = inv.StartDate
	}
	if base == nil || base.IsZero() {
		return false
	}

	// Floored, so a date a few hours in the future counts as -1 days.
	diffDays := int(math.Floor(now.Sub(*base).Hours() / 24))
	var passDate bool
	if adv.Op == OpBefore {
		passDate = diffDays < adv.Days
	} else {
		passDate = diffDays > adv.Days
	}

	if adv.RequireDeposit {
		return passDate && inv.DepositRequired > 0
	}
	return passDate
}

func (e *Engine) sendForRule(ctx context.Context, rule Rule, inv *domain.Invoice, debug bool) bool {
	to, cc, bcc, err := e.recipients(ctx, inv)
	if err != nil || to == "" {
		return false
	}

	tokens := e.buildTokens(ctx, inv)
	msg := emails.Message{
		To:      to,
		CC:      cc,
		BCC:     bcc,
		Subject: RenderTemplate(rule.Template.Subject, tokens),
		HTML:    RenderTemplate(rule.Template.HTML, tokens),
	}
	if err := e.Mailer.Send(ctx, msg); err != nil {
		if debug {
			log.Error().Err(err).Str("rule", rule.ID).Uint("invoice_id", inv.ID).Str("to", to).Msg("notifications: send failed")
		}
		return false
	}
	return true
}

// recipients resolves where a notification goes: the invoice's own
// addresses, then the linked user account, then the site admin email.
func (e *Engine) recipients(ctx context.Context, inv *domain.Invoice) (to string, cc, bcc []string, err error) {
	if validation.IsValidEmail(inv.ClientEmail) {
		to = inv.ClientEmail
	}
	ccRaw := inv.ClientCC
	bccRaw := inv.ClientBCC

	if to == "" {
		user, uerr := e.Invoices.LinkedClient(ctx, inv)
		if uerr != nil {
			return "", nil, nil, uerr
		}
		if user != nil {
			if validation.IsValidEmail(user.Email) {
				to = user.Email
			}
			if ccRaw == "" {
				ccRaw = user.CC
			}
			if bccRaw == "" {
				bccRaw = user.BCC
			}
		}
	}

	if to == "" {
		to = e.Site.AdminEmail
	}
	return to, validation.NormalizeEmailList(ccRaw), validation.NormalizeEmailList(bccRaw), nil
}

// buildTokens assembles the {{token}} substitution set for one invoice.
func (e *Engine) buildTokens(ctx context.Context, inv *domain.Invoice) map[string]string {
	label := e.Resolver.StatusLabel(ctx, inv.Status)
	return map[string]string{
		"invoice_id":    strconv.FormatUint(uint64(inv.ID), 10),
		"invoice_title": inv.Title,
		"status":        label, // back-compat: pretty label
		"status_label":  label,
		"status_slug":   inv.Status,
		"view_url":      e.viewURL(inv),
		"total":         formatAmount(inv.Total),
		"paid":          formatAmount(inv.Paid),
		"balance":       formatAmount(inv.Balance()),
		"site_name":     e.Site.Name,
		"site_url":      e.Site.URL,
		"date":          time.Now().Format("2006-01-02 15:04"),
	}
}

func (e *Engine) viewURL(inv *domain.Invoice) string {
	if inv.Hash == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(e.Site.URL, "/"), e.Site.InvoiceSlug, inv.Hash)
}

// RenderTemplate substitutes {{token}} placeholders. Unknown tokens are
// left as-is.
func RenderTemplate(tpl string, tokens map[string]string) string {
	pairs := make([]string, 0, len(tokens)*2)
	for k, v := range tokens {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// TestSendInput selects which rule and invoice a test send renders.
// RuleID wins over the legacy "sent"/"paid" alias; with neither, the first
// built-in default is used. InvoiceID zero means the most recent invoice.
type TestSendInput struct {
	Email     string // requesting user's address; tests never go to clients
	RuleID    string
	Legacy    string // "sent" or "paid"
	InvoiceID uint
}

type TestSendResult struct {
	RuleID string `json:"rule_id"`
	OK     bool   `json:"ok"`
}

// TestSend renders a rule for a real (or placeholder) invoice and mails it
// to the requester. It bypasses matching and dedup entirely and writes no
// marker.
func (e *Engine) TestSend(ctx context.Context, in TestSendInput) (*TestSendResult, error) {
	if !validation.IsValidEmail(in.Email) {
		return nil, errors.New("requester has no valid email address")
	}

	rules := e.Rules.Effective(ctx)
	var rule *Rule
	if in.RuleID != "" {
		for i := range rules {
			if rules[i].ID == in.RuleID {
				rule = &rules[i]
				break
			}
		}
	}
	if rule == nil && (in.Legacy == "sent" || in.Legacy == "paid") {
		want := "pending"
		if in.Legacy == "paid" {
			want = "paid"
		}
		for i := range rules {
			if len(rules[i].Match.Values) > 0 && rules[i].Match.Values[0] == want {
				rule = &rules[i]
				break
			}
		}
	}
	if rule == nil {
		defaults := DefaultRules()
		rule = &defaults[0]
	}

	tokens := e.testTokens(ctx, in.InvoiceID)
	msg := emails.Message{
		To:      in.Email,
		Subject: RenderTemplate(rule.Template.Subject, tokens),
		HTML:    RenderTemplate(rule.Template.HTML, tokens),
	}
	err := e.Mailer.Send(ctx, msg)
	res := &TestSendResult{RuleID: rule.ID, OK: err == nil}
	if e.Settings.DebugEnabled(ctx) {
		evt := log.Info()
		if err != nil {
			evt = log.Error().Err(err)
		}
		evt.Str("rule", rule.ID).Str("to", in.Email).Msg("notifications: test send")
	}
	return res, nil
}

func (e *Engine) testTokens(ctx context.Context, invoiceID uint) map[string]string {
	var inv *domain.Invoice
	var err error
	if invoiceID != 0 {
		inv, err = e.Invoices.GetByID(ctx, invoiceID)
	} else {
		inv, err = e.Invoices.MostRecent(ctx)
	}
	if err != nil || inv == nil {
		return map[string]string{
			"invoice_id":    "0",
			"invoice_title": "Test",
			"status":        "Test",
			"status_label":  "Test",
			"status_slug":   "test",
			"view_url":      e.Site.URL,
			"total":         "0.00",
			"paid":          "0.00",
			"balance":       "0.00",
			"site_name":     e.Site.Name,
			"site_url":      e.Site.URL,
			"date":          time.Now().Format("2006-01-02 15:04"),
		}
	}
	return e.buildTokens(ctx, inv)
}

// Resend clears every rule's sent-marker for one invoice and nudges the
// engine, letting the next run re-match and re-send across all applicable
// rules. Stored rules are used uncapped so markers above the license cap
// clear too.
func (e *Engine) Resend(ctx context.Context, invoiceID uint) error {
	if _, err := e.Invoices.GetByID(ctx, invoiceID); err != nil {
		return err
	}
	var ruleIDs []string
	for _, r := range e.Rules.Stored(ctx) {
		if r.ID != "" {
			ruleIDs = append(ruleIDs, r.ID)
		}
	}
	if err := e.Invoices.ClearSentMarkers(ctx, invoiceID, ruleIDs); err != nil {
		return err
	}
	if e.Nudge != nil {
		e.Nudge(15 * time.Second)
	}
	return nil
}
