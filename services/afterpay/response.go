package afterpay

import (
	"bytes"
	"encoding/json"

	"afterpay-payment-api/models"
)

type errorShape struct {
	Code            string `json:"code"`
	Message         string `json:"message"`
	CustomerMessage string `json:"customerFacingMessage"`
}

func (e *errorShape) toProviderError() *models.ProviderError {
	return &models.ProviderError{
		Code:            e.Code,
		Message:         e.Message,
		CustomerMessage: e.CustomerMessage,
	}
}

// ExtractError probes a provider response for one of the four known error
// shapes, in precedence order: top-level error object, first element of a
// top-level array, nested riskCheckMessages object, first element of a
// nested riskCheckMessages array. The first shape carrying a non-empty code
// wins; nil means the response carries no recognizable error.
func ExtractError(raw []byte) *models.ProviderError {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '[' {
		var list []errorShape
		if err := json.Unmarshal(trimmed, &list); err == nil && len(list) > 0 && list[0].Code != "" {
			return list[0].toProviderError()
		}
		return nil
	}

	var top struct {
		errorShape
		RiskCheckMessages json.RawMessage `json:"riskCheckMessages"`
	}
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil
	}
	if top.Code != "" {
		return top.errorShape.toProviderError()
	}

	risk := bytes.TrimSpace(top.RiskCheckMessages)
	if len(risk) == 0 {
		return nil
	}
	if risk[0] == '{' {
		var msg errorShape
		if err := json.Unmarshal(risk, &msg); err == nil && msg.Code != "" {
			return msg.toProviderError()
		}
		return nil
	}
	if risk[0] == '[' {
		var list []errorShape
		if err := json.Unmarshal(risk, &list); err == nil && len(list) > 0 && list[0].Code != "" {
			return list[0].toProviderError()
		}
	}
	return nil
}
