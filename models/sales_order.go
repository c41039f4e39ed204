package models

// SalesOrder adalah header order dari platform eksternal. Detail per baris
// (SOD) di-fetch terpisah saat order dipilih.
type SalesOrder struct {
	ID             string `json:"id"`
	SONumber       string `json:"soNumber"`
	DeliveryDate   string `json:"deliveryDate,omitempty"`
	DeliveryMethod *int   `json:"deliveryMethod,omitempty"`
	Priority       string `json:"priority,omitempty"`
	SODCount       int    `json:"sodCount"`
}
