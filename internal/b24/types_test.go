package b24

import (
	"encoding/json"
	"testing"
)

func TestProductEntryUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		data string
		want ProductEntry
	}{
		{
			name: "list shape with string id",
			data: `{"id":"7","name":"Consultation","detailText":"One hour","dateActiveFrom":"2024-01-01T00:00:00+03:00","dateActiveTo":"2030-01-01T00:00:00+03:00"}`,
			want: ProductEntry{
				ID:             7,
				Name:           "Consultation",
				DetailText:     "One hour",
				DateActiveFrom: "2024-01-01T00:00:00+03:00",
				DateActiveTo:   "2030-01-01T00:00:00+03:00",
			},
		},
		{
			name: "numeric id and price",
			data: `{"id":7,"name":"Consultation","PRICE":150.5,"CURRENCY_ID":"RUB"}`,
			want: ProductEntry{ID: 7, Name: "Consultation", Price: 150.5, CurrencyID: "RUB"},
		},
		{
			name: "price as string",
			data: `{"ID":"7","NAME":"Consultation","PRICE":"990.50","CURRENCY_ID":"RUB"}`,
			want: ProductEntry{ID: 7, Name: "Consultation", Price: 990.5, CurrencyID: "RUB"},
		},
		{
			name: "upper snake field variants",
			data: `{"ID":7,"NAME":"Course","DETAIL_TEXT":"Long","DATE_ACTIVE_FROM":"2024-06-01T00:00:00+03:00","DATE_ACTIVE_TO":"2025-06-01T00:00:00+03:00"}`,
			want: ProductEntry{
				ID:             7,
				Name:           "Course",
				DetailText:     "Long",
				DateActiveFrom: "2024-06-01T00:00:00+03:00",
				DateActiveTo:   "2025-06-01T00:00:00+03:00",
			},
		},
		{
			name: "null fields",
			data: `{"id":7,"name":"Course","detailText":null,"PRICE":null}`,
			want: ProductEntry{ID: 7, Name: "Course"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ProductEntry
			if err := json.Unmarshal([]byte(tt.data), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
