package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPayload_Validate(t *testing.T) {
	if err := (&Payload{Title: "t", Body: "b"}).Validate(); err != nil {
		t.Errorf("valid payload: %v", err)
	}
	if err := (&Payload{Body: "b"}).Validate(); !errors.Is(err, ErrMissingTitle) {
		t.Errorf("missing title: err = %v, want ErrMissingTitle", err)
	}
	if err := (&Payload{Title: "t"}).Validate(); !errors.Is(err, ErrMissingBody) {
		t.Errorf("missing body: err = %v, want ErrMissingBody", err)
	}
}

func TestPayload_JSONOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(&Payload{Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m) != 2 {
		t.Errorf("marshaled fields = %v, want only title and body", m)
	}
}

func TestPayload_JSONActionOrder(t *testing.T) {
	p := &Payload{
		Title: "t", Body: "b",
		Actions: []Action{
			{Action: "view", Title: "View claim"},
			{Action: "dismiss", Title: "Dismiss", Icon: "https://example.com/x.png"},
		},
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Payload
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Actions) != 2 || got.Actions[0].Action != "view" || got.Actions[1].Action != "dismiss" {
		t.Errorf("actions round-tripped out of order: %+v", got.Actions)
	}
}
