package messages

import "testing"

func TestMap_Defaults(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{404, "Not found"},
		{401, "Not authorized"},
		{403, "Not authorized"},
		{422, "Validation failed"},
		{500, "Server error"},
		{502, "Server error"},
		{503, "Server error"},
		{400, "Request failed"},
		{409, "Request failed"},
		{418, "Request failed"},
		{0, "Request failed"},
	}

	for _, tt := range tests {
		if got := Map(nil, tt.status); got != tt.want {
			t.Errorf("Map(nil, %d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestMap_ConfiguredWins(t *testing.T) {
	table := map[int]string{
		404: "Custom not found",
		418: "Teapot",
		500: "",
	}

	if got := Map(table, 404); got != "Custom not found" {
		t.Errorf("Map(404) = %q", got)
	}
	if got := Map(table, 418); got != "Teapot" {
		t.Errorf("Map(418) = %q", got)
	}
	// An empty configured message falls back to the default.
	if got := Map(table, 500); got != "Server error" {
		t.Errorf("Map(500) = %q", got)
	}
	if got := Map(table, 422); got != "Validation failed" {
		t.Errorf("Map(422) = %q", got)
	}
}
