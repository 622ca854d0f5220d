package db

import "testing"

func TestParseInvoicePayload(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		productID int
		dealID    int
		wantErr   bool
	}{
		{name: "valid", payload: "7:900", productID: 7, dealID: 900},
		{name: "large ids", payload: "123456:987654", productID: 123456, dealID: 987654},
		{name: "missing delimiter", payload: "7900", wantErr: true},
		{name: "empty", payload: "", wantErr: true},
		{name: "non numeric product", payload: "abc:900", wantErr: true},
		{name: "non numeric deal", payload: "7:xyz", wantErr: true},
		{name: "trailing garbage", payload: "7:900:extra", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			productID, dealID, err := ParseInvoicePayload(tt.payload)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseInvoicePayload(%q) expected error, got product=%d deal=%d", tt.payload, productID, dealID)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInvoicePayload(%q) unexpected error: %v", tt.payload, err)
			}
			if productID != tt.productID || dealID != tt.dealID {
				t.Errorf("ParseInvoicePayload(%q) = (%d, %d), want (%d, %d)",
					tt.payload, productID, dealID, tt.productID, tt.dealID)
			}
		})
	}
}
