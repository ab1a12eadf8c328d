package afterpay

import "testing"

func TestExtractError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantNil  bool
	}{
		{
			name:     "top level object",
			body:     `{"code":"400.104","message":"address invalid","customerFacingMessage":"Please check your address"}`,
			wantCode: "400.104",
		},
		{
			name:     "top level array",
			body:     `[{"code":"400.200","message":"amount out of range"}]`,
			wantCode: "400.200",
		},
		{
			name:     "risk check object",
			body:     `{"outcome":"Rejected","riskCheckMessages":{"code":"200.101","message":"rejected by risk check"}}`,
			wantCode: "200.101",
		},
		{
			name:     "risk check array",
			body:     `{"outcome":"Rejected","riskCheckMessages":[{"code":"200.102","message":"rejected"}]}`,
			wantCode: "200.102",
		},
		{
			name:     "top level code wins over risk check",
			body:     `{"code":"400.104","message":"top","riskCheckMessages":{"code":"200.101","message":"nested"}}`,
			wantCode: "400.104",
		},
		{
			name:    "clean response",
			body:    `{"outcome":"Accepted","checkoutId":"c-1","reservationId":"r-1"}`,
			wantNil: true,
		},
		{
			name:    "empty body",
			body:    ``,
			wantNil: true,
		},
		{
			name:    "empty array",
			body:    `[]`,
			wantNil: true,
		},
		{
			name:    "risk check array without code",
			body:    `{"riskCheckMessages":[{"message":"informational"}]}`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractError([]byte(tt.body))
			if tt.wantNil {
				if got != nil {
					t.Fatalf("ExtractError = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("ExtractError = nil, want error")
			}
			if got.Code != tt.wantCode {
				t.Errorf("ExtractError code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestExtractErrorCustomerMessage(t *testing.T) {
	body := `{"code":"400.104","message":"machine text","customerFacingMessage":"Please check your address"}`
	got := ExtractError([]byte(body))
	if got == nil {
		t.Fatal("ExtractError = nil, want error")
	}
	if got.Error() != "Please check your address" {
		t.Errorf("Error() = %q, want the customer-facing message", got.Error())
	}
}
