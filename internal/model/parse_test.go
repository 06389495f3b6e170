package model

import "testing"

func TestParsedExpenseValidate(t *testing.T) {
	tests := []struct {
		name    string
		parsed  ParsedExpense
		wantErr bool
	}{
		{"valid", ParsedExpense{Amount: 500, Category: "Food & Dining", Description: "Coffee"}, false},
		{"zero amount", ParsedExpense{Amount: 0, Category: "Food & Dining", Description: "Coffee"}, true},
		{"negative amount", ParsedExpense{Amount: -10, Category: "Food & Dining", Description: "Coffee"}, true},
		{"missing category", ParsedExpense{Amount: 500, Category: "", Description: "Coffee"}, true},
		{"missing description", ParsedExpense{Amount: 500, Category: "Food & Dining", Description: ""}, true},
		{"invented category", ParsedExpense{Amount: 500, Category: "Crypto", Description: "Coffee"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parsed.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsValidCategory(t *testing.T) {
	if !IsValidCategory("Shopping") {
		t.Error("Shopping should be valid")
	}
	if IsValidCategory("shopping") {
		t.Error("matching is case sensitive, lowercase should be rejected")
	}
	if IsValidCategory("") {
		t.Error("empty category should be rejected")
	}
}
