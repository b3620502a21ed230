package model

import "testing"

func TestParseRequestStatus_NormalizesCase(t *testing.T) {
	tests := []struct {
		input string
		want  RequestStatus
	}{
		{"Pending", RequestStatusPending},
		{"pending", RequestStatusPending},
		{"Accepted", RequestStatusAccepted},
		{"ACCEPTED", RequestStatusAccepted},
		{"rejected", RequestStatusRejected},
		{" Rejected ", RequestStatusRejected},
		{"unknown", RequestStatus("")},
		{"", RequestStatus("")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseRequestStatus(tt.input); got != tt.want {
				t.Errorf("ParseRequestStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestStatus_Terminal(t *testing.T) {
	if RequestStatusPending.Terminal() {
		t.Error("Pending.Terminal() = true, want false")
	}
	if !RequestStatusAccepted.Terminal() {
		t.Error("Accepted.Terminal() = false, want true")
	}
	if !RequestStatusRejected.Terminal() {
		t.Error("Rejected.Terminal() = false, want true")
	}
}

func TestRequestStatus_CanTransitionTo_OnlyPendingToTerminal(t *testing.T) {
	tests := []struct {
		name string
		from RequestStatus
		to   RequestStatus
		want bool
	}{
		{"pending_to_accepted", RequestStatusPending, RequestStatusAccepted, true},
		{"pending_to_rejected", RequestStatusPending, RequestStatusRejected, true},
		{"pending_to_pending", RequestStatusPending, RequestStatusPending, false},
		{"accepted_to_rejected", RequestStatusAccepted, RequestStatusRejected, false},
		{"accepted_to_accepted", RequestStatusAccepted, RequestStatusAccepted, false},
		{"rejected_to_accepted", RequestStatusRejected, RequestStatusAccepted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%q → %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestParseFoodStatus_NormalizesLegacyLowercase(t *testing.T) {
	tests := []struct {
		input string
		want  FoodStatus
	}{
		{"Available", FoodStatusAvailable},
		{"available", FoodStatusAvailable},
		{"Donated", FoodStatusDonated},
		{"donated", FoodStatusDonated}, // 旧APIの小文字表記
		{"", FoodStatusUnknown},
		{"pending", FoodStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFoodStatus(tt.input); got != tt.want {
				t.Errorf("ParseFoodStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFood_IsDonor(t *testing.T) {
	food := &Food{
		ID:     "food-1",
		Status: FoodStatusAvailable,
		Donor:  Donor{Name: "Rahim", Email: "rahim@example.com"},
	}

	if !food.IsDonor("rahim@example.com") {
		t.Error("IsDonor(donor email) = false, want true")
	}
	if food.IsDonor("karim@example.com") {
		t.Error("IsDonor(other email) = true, want false")
	}

	// ドナーEmailが未設定のFoodは誰のものでもない
	orphan := &Food{ID: "food-2"}
	if orphan.IsDonor("") {
		t.Error("IsDonor(empty) on food without donor = true, want false")
	}
}

func TestFood_Summary_CarriesDisplayFields(t *testing.T) {
	food := &Food{
		ID:       "food-1",
		Name:     "Rice",
		ImageURL: "https://img.example.com/rice.jpg",
		Status:   FoodStatusAvailable,
		Donor:    Donor{Email: "rahim@example.com"},
	}

	s := food.Summary()
	if s.ID != "food-1" || s.Name != "Rice" || s.Status != FoodStatusAvailable {
		t.Errorf("Summary() = %+v, want display fields copied", s)
	}
	if s.ImageURL != food.ImageURL {
		t.Errorf("Summary().ImageURL = %q, want %q", s.ImageURL, food.ImageURL)
	}
}
