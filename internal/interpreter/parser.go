package interpreter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/onboarding"
)

// wireCommand is one operation as the model writes it.
type wireCommand struct {
	OperationType  string           `json:"operationType"`
	Amount         *decimal.Decimal `json:"amount"`
	Currency       *string          `json:"currency"`
	AccountName    *string          `json:"accountName"`
	FundName       *string          `json:"fundName"`
	Comment        *string          `json:"comment"`
	SecondPerson   *string          `json:"secondPerson"`
	SecondAccount  *string          `json:"secondAccount"`
	SecondCurrency *string          `json:"secondCurrency"`
}

type wireSetAsDefault struct {
	Account  *string `json:"account"`
	Currency *string `json:"currency"`
	Fund     *string `json:"fund"`
}

type wireMeta struct {
	Type  *string         `json:"type"`
	Value json.RawMessage `json:"value"`
}

type wireBatch struct {
	Commands             []wireCommand     `json:"commands"`
	Understood           bool              `json:"understood"`
	ErrorMessage         *string           `json:"errorMessage"`
	Clarification        *string           `json:"clarification"`
	SuggestedInstruction *string           `json:"suggestedInstruction"`
	Correction           bool              `json:"correction"`
	SetAsDefault         *wireSetAsDefault `json:"setAsDefault"`
	MetaCommand          *wireMeta         `json:"metaCommand"`
}

// wireOnboarding mirrors onboarding.Extraction with nullable fields.
type wireOnboarding struct {
	ResponseMessage   string   `json:"responseMessage"`
	StepComplete      bool     `json:"stepComplete"`
	ExtractedName     *string  `json:"extractedName"`
	ExtractedCurrency *string  `json:"extractedCurrency"`
	ExtractedAccounts []string `json:"extractedAccounts"`
	ExtractedFunds    []string `json:"extractedFunds"`
	ExtractedPartner  *string  `json:"extractedPartner"`
	DetectedLanguage  *string  `json:"detectedLanguage"`
}

// parseBatch decodes a model response into a CandidateBatch.
func parseBatch(raw string) (domain.CandidateBatch, error) {
	var w wireBatch
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &w); err != nil {
		return domain.CandidateBatch{}, fmt.Errorf("parseBatch: unmarshal JSON: %w", err)
	}

	batch := domain.CandidateBatch{
		Understood:           w.Understood,
		Error:                str(w.ErrorMessage),
		Clarification:        str(w.Clarification),
		SuggestedInstruction: strings.TrimSpace(str(w.SuggestedInstruction)),
		Correction:           w.Correction,
	}

	for _, c := range w.Commands {
		batch.Operations = append(batch.Operations, domain.CandidateOperation{
			Kind:           domain.ParseOperationKind(c.OperationType),
			Amount:         positive(c.Amount),
			Currency:       domain.NormalizeCode(str(c.Currency)),
			Account:        strings.TrimSpace(str(c.AccountName)),
			Fund:           strings.TrimSpace(str(c.FundName)),
			Comment:        strings.TrimSpace(str(c.Comment)),
			SecondPerson:   strings.TrimSpace(str(c.SecondPerson)),
			SecondAccount:  strings.TrimSpace(str(c.SecondAccount)),
			SecondCurrency: domain.NormalizeCode(str(c.SecondCurrency)),
			Understood:     w.Understood,
			Error:          batch.Error,
			Clarification:  batch.Clarification,
		})
	}

	if d := w.SetAsDefault; d != nil {
		sd := &domain.SetAsDefault{
			Account:  strings.TrimSpace(str(d.Account)),
			Currency: domain.NormalizeCode(str(d.Currency)),
			Fund:     strings.TrimSpace(str(d.Fund)),
		}
		if sd.HasAny() {
			batch.SetAsDefault = sd
		}
	}

	if m := w.MetaCommand; m != nil {
		meta := &domain.MetaCommand{Type: strings.TrimSpace(str(m.Type)), Value: rawString(m.Value)}
		if meta.Present() {
			batch.Meta = meta
		}
	}

	return batch, nil
}

// parseExtraction decodes an onboarding step response.
func parseExtraction(raw string) (onboarding.Extraction, error) {
	var w wireOnboarding
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &w); err != nil {
		return onboarding.Extraction{}, fmt.Errorf("parseExtraction: unmarshal JSON: %w", err)
	}
	return onboarding.Extraction{
		ResponseMessage:  w.ResponseMessage,
		StepComplete:     w.StepComplete,
		Name:             str(w.ExtractedName),
		Currency:         str(w.ExtractedCurrency),
		Accounts:         w.ExtractedAccounts,
		Funds:            w.ExtractedFunds,
		Partner:          str(w.ExtractedPartner),
		DetectedLanguage: str(w.DetectedLanguage),
	}, nil
}

// cleanModelJSON strips Markdown fences and any text around the top-level object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

// str unwraps a nullable string; models sometimes write the literal "null".
func str(p *string) string {
	if p == nil {
		return ""
	}
	s := strings.TrimSpace(*p)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

// rawString accepts a JSON string, number or null.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return str(&s)
	}
	return strings.TrimSpace(string(raw))
}

func positive(d *decimal.Decimal) *decimal.Decimal {
	if d == nil || !d.IsPositive() {
		return nil
	}
	return d
}
