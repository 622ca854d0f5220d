package b24

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Lead statuses understood by the CRM pipeline.
const (
	LeadStatusNew       = "NEW"
	LeadStatusInProcess = "IN_PROCESS"
	LeadStatusProcessed = "PROCESSED"
	LeadStatusJunk      = "JUNK"
	LeadStatusConverted = "CONVERTED"
)

// Deal stages understood by the CRM pipeline.
const (
	DealStageNew          = "NEW"
	DealStageFinalInvoice = "FINAL_INVOICE"
	DealStageWon          = "WON"
	DealStageLose         = "LOSE"
)

// ProductEntry is one catalog item as Bitrix returns it: list fields in
// camelCase, price fields merged in from crm.product.get in UPPER_SNAKE.
type ProductEntry struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	DetailText     string  `json:"detailText"`
	DateActiveFrom string  `json:"dateActiveFrom"`
	DateActiveTo   string  `json:"dateActiveTo"`
	Price          float64 `json:"PRICE"`
	CurrencyID     string  `json:"CURRENCY_ID"`
}

// UnmarshalJSON tolerates Bitrix's loose typing: ids and prices arrive as
// numbers or as quoted strings depending on the endpoint.
func (p *ProductEntry) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.ID = int(readFloatRaw(raw, "id", "ID"))
	p.Name = readStringRaw(raw, "name", "NAME")
	p.DetailText = readStringRaw(raw, "detailText", "DETAIL_TEXT")
	p.DateActiveFrom = readStringRaw(raw, "dateActiveFrom", "DATE_ACTIVE_FROM")
	p.DateActiveTo = readStringRaw(raw, "dateActiveTo", "DATE_ACTIVE_TO")
	p.Price = readFloatRaw(raw, "PRICE")
	p.CurrencyID = readStringRaw(raw, "CURRENCY_ID")
	return nil
}

func readStringRaw(raw map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		val, ok := raw[key]
		if !ok || len(val) == 0 {
			continue
		}
		var str string
		if err := json.Unmarshal(val, &str); err == nil {
			return str
		}
		// Non-string scalar, return its literal form.
		trimmed := strings.TrimSpace(string(val))
		if trimmed != "null" {
			return trimmed
		}
	}
	return ""
}

func readFloatRaw(raw map[string]json.RawMessage, keys ...string) float64 {
	for _, key := range keys {
		val, ok := raw[key]
		if !ok || len(val) == 0 {
			continue
		}
		var num float64
		if err := json.Unmarshal(val, &num); err == nil {
			return num
		}
		var str string
		if err := json.Unmarshal(val, &str); err == nil {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}
