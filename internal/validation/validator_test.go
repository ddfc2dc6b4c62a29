// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package validation

import (
	"reflect"
	"testing"
)

type sample struct {
	Confidence *float64 `json:"confianza" validate:"required"`
	Date       string   `json:"fecha,omitempty" validate:"required"`
	Limit      int      `json:"limit" validate:"gte=0,lte=100"`
	Order      string   `validate:"omitempty,oneof=asc desc"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator should return the same instance")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	c := 0.5
	if verr := ValidateStruct(&sample{Confidence: &c, Date: "2024-01-01", Limit: 20, Order: "asc"}); verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
}

func TestValidateStruct_UsesJSONNames(t *testing.T) {
	verr := ValidateStruct(&sample{Limit: 500})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	want := []string{"confianza", "fecha", "limit"}
	if got := verr.Fields(); !reflect.DeepEqual(got, want) {
		t.Errorf("Fields() = %v, want %v", got, want)
	}
	if verr.Errors()[0].Error() != "confianza is required" {
		t.Errorf("message = %q", verr.Errors()[0].Error())
	}
	if verr.Errors()[2].Param() != "100" {
		t.Errorf("param = %q", verr.Errors()[2].Param())
	}
}

func TestValidateStruct_FallbackToGoName(t *testing.T) {
	c := 0.5
	verr := ValidateStruct(&sample{Confidence: &c, Date: "x", Order: "sideways"})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if verr.Errors()[0].Field() != "Order" {
		t.Errorf("field = %q, want Order", verr.Errors()[0].Field())
	}
	if verr.Errors()[0].Error() != "Order must be one of: asc desc" {
		t.Errorf("message = %q", verr.Errors()[0].Error())
	}
}

func TestToAPIError(t *testing.T) {
	c := 0.5
	single := ValidateStruct(&sample{Confidence: &c, Date: "x", Limit: -1}).ToAPIError()
	if single.Code != "VALIDATION_ERROR" || single.Details["field"] != "limit" {
		t.Errorf("single = %+v", single)
	}

	multi := ValidateStruct(&sample{}).ToAPIError()
	fields, ok := multi.Details["fields"].([]string)
	if !ok || len(fields) != 2 {
		t.Errorf("multi details = %+v", multi.Details)
	}
}
