package models

// WorkLocation: рабочая зона с привязанным QR-кодом.
type WorkLocation struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	QRCode    string  `json:"qr_code"`
	Active    bool    `json:"active"`
}

type LocationInput struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}
