/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's decimal/date model from the external contract: decimals
  become float64 only here, at the boundary, and dates become ISO strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - rollforward/bridge.go: Bridge and waterfall sources
*/
package api

import (
	"github.com/revops/acv-engine/rollforward"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// WaterfallPointDTO is one (label, signed delta) bar for the chart layer.
type WaterfallPointDTO struct {
	Label string  `json:"label"`
	Delta float64 `json:"delta"`
}

// PeriodDTO is an inclusive date span.
type PeriodDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BridgeDTO is a single-period bridge. Warning carries the non-fatal
// source-connectivity message when the dataset degraded to empty.
type BridgeDTO struct {
	Period      PeriodDTO           `json:"period"`
	Opening     float64             `json:"opening"`
	Expiring    float64             `json:"expiring"`
	Renewed     float64             `json:"renewed"`
	NewBusiness float64             `json:"new_business"`
	Closing     float64             `json:"closing"`
	Waterfall   []WaterfallPointDTO `json:"waterfall"`
	Warning     string              `json:"warning,omitempty"`
}

// MonthBridgeDTO is one sub-period of a rolling breakdown.
type MonthBridgeDTO struct {
	Month       string  `json:"month"`
	Opening     float64 `json:"opening"`
	Expiring    float64 `json:"expiring"`
	Renewed     float64 `json:"renewed"`
	NewBusiness float64 `json:"new_business"`
	Closing     float64 `json:"closing"`
}

// MonthlyBridgeDTO is the M-sub-period breakdown: totals, per-month detail,
// the 1+3M+1 waterfall, and the simplified 4-bar view.
type MonthlyBridgeDTO struct {
	Period      PeriodDTO           `json:"period"`
	Opening     float64             `json:"opening"`
	Expiring    float64             `json:"expiring"`
	Renewed     float64             `json:"renewed"`
	NewBusiness float64             `json:"new_business"`
	Closing     float64             `json:"closing"`
	Months      []MonthBridgeDTO    `json:"months"`
	Waterfall   []WaterfallPointDTO `json:"waterfall"`
	Simplified  []WaterfallPointDTO `json:"simplified"`
	Warning     string              `json:"warning,omitempty"`
}

// RecordDTO is one classified subscription record.
type RecordDTO struct {
	DealID             string  `json:"deal_id"`
	PipelineID         string  `json:"pipeline_id"`
	CompanyID          string  `json:"company_id"`
	CompanyName        string  `json:"company_name"`
	Region             string  `json:"region,omitempty"`
	Category           string  `json:"category"`
	Bundle             string  `json:"bundle,omitempty"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	TotalAmount        float64 `json:"total_amount"`
	ACV                float64 `json:"acv"`
	Status             string  `json:"status"`
	RenewalPeriod      string  `json:"renewal_period"`
	RenewalStatus      string  `json:"renewal_status"`
	FinalRenewalStatus string  `json:"final_renewal_status"`
}

// DimensionsDTO populates the filter selectors.
type DimensionsDTO struct {
	Regions    []string `json:"regions"`
	Categories []string `json:"categories"`
	Bundles    []string `json:"bundles"`
	MinYear    int      `json:"min_year"`
	MaxYear    int      `json:"max_year"`
}

// ScenarioDTO describes a demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a demo dataset to seed.
type LoadScenarioRequest struct {
	ID string `json:"id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPeriodDTO(p rollforward.Period) PeriodDTO {
	return PeriodDTO{Start: p.Start.String(), End: p.End.String()}
}

func toWaterfallDTOs(points []rollforward.WaterfallPoint) []WaterfallPointDTO {
	dtos := make([]WaterfallPointDTO, len(points))
	for i, pt := range points {
		v, _ := pt.Delta.Float64()
		dtos[i] = WaterfallPointDTO{Label: pt.Label, Delta: v}
	}
	return dtos
}

func toBridgeDTO(b rollforward.Bridge, warning string) BridgeDTO {
	opening, _ := b.Opening.Float64()
	expiring, _ := b.Expiring.Float64()
	renewed, _ := b.Renewed.Float64()
	newBiz, _ := b.NewBusiness.Float64()
	closing, _ := b.Closing.Float64()
	return BridgeDTO{
		Period:      toPeriodDTO(b.Period),
		Opening:     opening,
		Expiring:    expiring,
		Renewed:     renewed,
		NewBusiness: newBiz,
		Closing:     closing,
		Waterfall:   toWaterfallDTOs(b.Waterfall()),
		Warning:     warning,
	}
}

func toMonthlyBridgeDTO(rb rollforward.RollingBridge, warning string) MonthlyBridgeDTO {
	opening, _ := rb.Opening.Float64()
	expiring, _ := rb.Expiring.Float64()
	renewed, _ := rb.Renewed.Float64()
	newBiz, _ := rb.NewBusiness.Float64()
	closing, _ := rb.Closing.Float64()

	months := make([]MonthBridgeDTO, len(rb.Periods))
	for i, sub := range rb.Periods {
		mo, _ := sub.Opening.Float64()
		me, _ := sub.Expiring.Float64()
		mr, _ := sub.Renewed.Float64()
		mn, _ := sub.NewBusiness.Float64()
		mc, _ := sub.Closing.Float64()
		months[i] = MonthBridgeDTO{
			Month:       rollforward.MonthOf(sub.Period.Start).String(),
			Opening:     mo,
			Expiring:    me,
			Renewed:     mr,
			NewBusiness: mn,
			Closing:     mc,
		}
	}

	return MonthlyBridgeDTO{
		Period:      toPeriodDTO(rb.Period),
		Opening:     opening,
		Expiring:    expiring,
		Renewed:     renewed,
		NewBusiness: newBiz,
		Closing:     closing,
		Months:      months,
		Waterfall:   toWaterfallDTOs(rb.Waterfall()),
		Simplified:  toWaterfallDTOs(rb.SimplifiedWaterfall()),
		Warning:     warning,
	}
}

func toRecordDTO(r rollforward.SubscriptionRecord) RecordDTO {
	amount, _ := r.TotalAmount.Float64()
	acv, _ := r.ACV.Float64()
	return RecordDTO{
		DealID:             string(r.DealID),
		PipelineID:         r.PipelineID,
		CompanyID:          string(r.CompanyID),
		CompanyName:        r.CompanyName,
		Region:             r.Region,
		Category:           r.Category,
		Bundle:             r.Bundle,
		StartDate:          r.Start.String(),
		EndDate:            r.End.String(),
		TotalAmount:        amount,
		ACV:                acv,
		Status:             string(r.Status),
		RenewalPeriod:      r.RenewalPeriod.String(),
		RenewalStatus:      string(r.RenewalStatus),
		FinalRenewalStatus: string(r.FinalRenewalStatus),
	}
}

func toRecordDTOs(records []rollforward.SubscriptionRecord) []RecordDTO {
	dtos := make([]RecordDTO, len(records))
	for i, r := range records {
		dtos[i] = toRecordDTO(r)
	}
	return dtos
}
