package steamjson

import (
	"encoding/json"
	"errors"
	"testing"
)

type priceBlock struct {
	DiscountPercent int `json:"discount_percent"`
}

func TestUnion_ObjectVariant(t *testing.T) {
	var u Union[priceBlock]
	if err := json.Unmarshal([]byte(`{"discount_percent":100}`), &u); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !u.IsObject() {
		t.Fatal("expected object variant to be populated")
	}
	if u.List != nil {
		t.Error("list variant must be empty when object is populated")
	}
	if u.Object.DiscountPercent != 100 {
		t.Errorf("got discount %d, want 100", u.Object.DiscountPercent)
	}
}

func TestUnion_ListVariant(t *testing.T) {
	for _, input := range []string{`[]`, `[1,"two",{}]`} {
		var u Union[priceBlock]
		if err := json.Unmarshal([]byte(input), &u); err != nil {
			t.Fatalf("Unmarshal(%s): %v", input, err)
		}
		if u.IsObject() {
			t.Errorf("Unmarshal(%s): object variant populated, want list", input)
		}
		if u.List == nil {
			t.Errorf("Unmarshal(%s): list variant not populated", input)
		}
	}
}

func TestUnion_UnknownShape(t *testing.T) {
	for _, input := range []string{`42`, `"text"`, `true`, `null`} {
		var u Union[priceBlock]
		err := json.Unmarshal([]byte(input), &u)
		if !errors.Is(err, ErrUnknownUnionShape) {
			t.Errorf("Unmarshal(%s) error = %v, want ErrUnknownUnionShape", input, err)
		}
	}
}

func TestUnion_MarshalPopulatedVariant(t *testing.T) {
	u := Union[priceBlock]{Object: &priceBlock{DiscountPercent: 100}}
	out, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal object variant: %v", err)
	}
	if string(out) != `{"discount_percent":100}` {
		t.Errorf("Marshal object variant = %s", out)
	}

	u = Union[priceBlock]{List: []json.RawMessage{}}
	out, err = json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal list variant: %v", err)
	}
	if string(out) != `[]` {
		t.Errorf("Marshal list variant = %s", out)
	}
}

func TestUnion_MarshalEmpty(t *testing.T) {
	var u Union[priceBlock]
	_, err := json.Marshal(u)
	if !errors.Is(err, ErrEmptyUnion) {
		t.Errorf("Marshal empty union error = %v, want ErrEmptyUnion", err)
	}
}

func TestUnion_RoundtripExactlyOneVariant(t *testing.T) {
	var u Union[priceBlock]
	if err := json.Unmarshal([]byte(`{"discount_percent":50}`), &u); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	out, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Union[priceBlock]
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal roundtrip: %v", err)
	}
	if !back.IsObject() || back.Object.DiscountPercent != 50 {
		t.Errorf("roundtrip lost object variant: %+v", back)
	}
}
