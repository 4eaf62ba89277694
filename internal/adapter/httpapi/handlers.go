package httpapi

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
	"github.com/mfonseca/dcaflow-backend/internal/metrics"
	"github.com/mfonseca/dcaflow-backend/internal/usecase/backtest"
	"github.com/mfonseca/dcaflow-backend/internal/usecase/rules"
)

const dateLayout = "2006-01-02"

// ruleRequest is the JSON body for rule create/update
type ruleRequest struct {
	Pair         string `json:"pair" validate:"required"`
	Cadence      string `json:"cadence" validate:"required,oneof=DAILY WEEKLY MONTHLY"`
	AnchorDate   string `json:"anchor_date" validate:"required,datetime=2006-01-02"`
	TimeOfDay    string `json:"time_of_day" validate:"required,datetime=15:04"`
	TimeZone     string `json:"timezone" validate:"required"`
	MonthlyDay   int    `json:"monthly_day" validate:"omitempty,min=1,max=28"`
	Contribution string `json:"contribution" validate:"required"`
	EndDate      string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// ruleResponse is the JSON representation of a stored rule
type ruleResponse struct {
	ID           string     `json:"id"`
	Pair         string     `json:"pair"`
	Cadence      string     `json:"cadence"`
	AnchorDate   string     `json:"anchor_date"`
	TimeOfDay    string     `json:"time_of_day"`
	TimeZone     string     `json:"timezone"`
	MonthlyDay   int        `json:"monthly_day,omitempty"`
	Contribution string     `json:"contribution"`
	EndDate      *string    `json:"end_date,omitempty"`
	NextRunAt    *time.Time `json:"next_run_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toRuleResponse(rule *domain.RecurrenceRule) ruleResponse {
	resp := ruleResponse{
		ID:           rule.ID.String(),
		Pair:         rule.Pair,
		Cadence:      string(rule.Cadence),
		AnchorDate:   rule.AnchorDate.Format(dateLayout),
		TimeOfDay:    rule.TimeOfDay,
		TimeZone:     rule.TimeZone,
		MonthlyDay:   rule.MonthlyDay,
		Contribution: rule.Contribution.String(),
		NextRunAt:    rule.NextRunAt,
		CreatedAt:    rule.CreatedAt,
	}
	if rule.EndDate != nil {
		end := rule.EndDate.Format(dateLayout)
		resp.EndDate = &end
	}
	return resp
}

// decodeRuleInput parses and validates a rule body into the usecase input
func (s *Server) decodeRuleInput(r *http.Request) (rules.CreateRuleInput, error) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return rules.CreateRuleInput{}, errBadRequest("invalid JSON body: " + err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return rules.CreateRuleInput{}, errBadRequest(err.Error())
	}

	anchor, err := time.Parse(dateLayout, req.AnchorDate)
	if err != nil {
		return rules.CreateRuleInput{}, errBadRequest("invalid anchor_date format: " + err.Error())
	}

	contribution, err := decimal.NewFromString(req.Contribution)
	if err != nil {
		return rules.CreateRuleInput{}, errBadRequest("invalid contribution format: " + err.Error())
	}

	input := rules.CreateRuleInput{
		Pair:         req.Pair,
		Cadence:      domain.Cadence(req.Cadence),
		AnchorDate:   anchor,
		TimeOfDay:    req.TimeOfDay,
		TimeZone:     req.TimeZone,
		MonthlyDay:   req.MonthlyDay,
		Contribution: contribution,
	}
	if req.EndDate != "" {
		end, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			return rules.CreateRuleInput{}, errBadRequest("invalid end_date format: " + err.Error())
		}
		input.EndDate = &end
	}
	return input, nil
}

// handleCreateRule handles POST /v1/rules
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	input, err := s.decodeRuleInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := s.RuleService.CreateRule(r.Context(), input)
	if err != nil {
		s.mapError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}

// handleListRules handles GET /v1/rules
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	list, err := s.RuleService.ListRules(r.Context())
	if err != nil {
		s.mapError(w, err)
		return
	}

	resp := make([]ruleResponse, 0, len(list))
	for _, rule := range list {
		resp = append(resp, toRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": resp})
}

// handleGetRule handles GET /v1/rules/{id}
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id: "+err.Error())
		return
	}

	rule, err := s.RuleService.GetRule(r.Context(), id)
	if err != nil {
		s.mapError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

// handleUpdateRule handles PUT /v1/rules/{id}
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id: "+err.Error())
		return
	}

	input, err := s.decodeRuleInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := s.RuleService.UpdateRule(r.Context(), id, input)
	if err != nil {
		s.mapError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

// handleFulfilRule handles POST /v1/rules/{id}/fulfil
func (s *Server) handleFulfilRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id: "+err.Error())
		return
	}

	rule, err := s.RuleService.MarkFulfilled(r.Context(), id)
	if err != nil {
		s.mapError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

// backtestRequest is the JSON body for POST /v1/backtests
type backtestRequest struct {
	Pair         string `json:"pair" validate:"required"`
	Cadence      string `json:"cadence" validate:"required,oneof=DAILY WEEKLY MONTHLY"`
	AnchorDate   string `json:"anchor_date" validate:"omitempty,datetime=2006-01-02"`
	TimeOfDay    string `json:"time_of_day" validate:"required,datetime=15:04"`
	TimeZone     string `json:"timezone" validate:"required"`
	MonthlyDay   int    `json:"monthly_day" validate:"omitempty,min=1,max=28"`
	Contribution string `json:"contribution" validate:"required"`
	RangeStart   string `json:"range_start" validate:"required,datetime=2006-01-02"`
	RangeEnd     string `json:"range_end" validate:"required,datetime=2006-01-02"`
	Granularity  string `json:"granularity" validate:"omitempty,oneof=MINUTE HOUR DAY"`
}

// backtestStepResponse is one simulated purchase in the report
type backtestStepResponse struct {
	Instant  time.Time `json:"instant"`
	Price    string    `json:"price"`
	Units    string    `json:"units"`
	Cost     string    `json:"cost"`
	CumUnits string    `json:"cum_units"`
	CumCost  string    `json:"cum_cost"`
	Value    string    `json:"value"`
}

// backtestResponse is the full simulation report
type backtestResponse struct {
	Periods       int                    `json:"periods"`
	TotalInvested string                 `json:"total_invested"`
	TotalUnits    string                 `json:"total_units"`
	AverageCost   string                 `json:"average_cost"`
	EndValue      string                 `json:"end_value"`
	ProfitLoss    string                 `json:"profit_loss"`
	ProfitLossPct string                 `json:"profit_loss_pct"`
	Steps         []backtestStepResponse `json:"steps"`
}

// handleRunBacktest handles POST /v1/backtests
func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	input, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.BacktestService.Run(r.Context(), input)
	if err != nil {
		s.mapError(w, err)
		return
	}

	metrics.BacktestDuration.Observe(time.Since(started).Seconds())
	metrics.BacktestPeriods.Observe(float64(result.Summary.Periods))

	writeJSON(w, http.StatusOK, toBacktestResponse(result))
}

func (req backtestRequest) toInput() (backtest.Input, error) {
	contribution, err := decimal.NewFromString(req.Contribution)
	if err != nil {
		return backtest.Input{}, errBadRequest("invalid contribution format: " + err.Error())
	}

	rangeStart, err := time.Parse(dateLayout, req.RangeStart)
	if err != nil {
		return backtest.Input{}, errBadRequest("invalid range_start format: " + err.Error())
	}
	rangeEnd, err := time.Parse(dateLayout, req.RangeEnd)
	if err != nil {
		return backtest.Input{}, errBadRequest("invalid range_end format: " + err.Error())
	}
	if !rangeEnd.After(rangeStart) {
		return backtest.Input{}, errBadRequest("range_end must be after range_start")
	}
	// The range end is a civil date; include the whole final day
	rangeEnd = rangeEnd.Add(24*time.Hour - time.Second)

	input := backtest.Input{
		Pair:         req.Pair,
		Cadence:      domain.Cadence(req.Cadence),
		TimeOfDay:    req.TimeOfDay,
		TimeZone:     req.TimeZone,
		MonthlyDay:   req.MonthlyDay,
		Contribution: contribution,
		RangeStart:   rangeStart,
		RangeEnd:     rangeEnd,
		Granularity:  domain.GranularityDay,
	}
	if req.AnchorDate != "" {
		anchor, err := time.Parse(dateLayout, req.AnchorDate)
		if err != nil {
			return backtest.Input{}, errBadRequest("invalid anchor_date format: " + err.Error())
		}
		input.AnchorDate = anchor
	}
	if req.Granularity != "" {
		input.Granularity = domain.Granularity(req.Granularity)
	}
	return input, nil
}

func toBacktestResponse(result *backtest.Result) backtestResponse {
	steps := make([]backtestStepResponse, 0, len(result.Steps))
	for _, step := range result.Steps {
		steps = append(steps, backtestStepResponse{
			Instant:  step.Instant,
			Price:    step.Price.String(),
			Units:    step.Units.String(),
			Cost:     step.Cost.String(),
			CumUnits: step.CumUnits.String(),
			CumCost:  step.CumCost.String(),
			Value:    step.Value.String(),
		})
	}

	summary := result.Summary
	return backtestResponse{
		Periods:       summary.Periods,
		TotalInvested: summary.TotalInvested.String(),
		TotalUnits:    summary.TotalUnits.String(),
		AverageCost:   summary.AverageCost.String(),
		EndValue:      summary.EndValue.String(),
		ProfitLoss:    summary.ProfitLoss.String(),
		ProfitLossPct: summary.ProfitLossPct.String(),
		Steps:         steps,
	}
}

// badRequestError lets the decode helpers return plain message errors
type badRequestError string

func errBadRequest(msg string) error { return badRequestError(msg) }

func (e badRequestError) Error() string { return string(e) }
