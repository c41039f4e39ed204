package models

import "strings"

// RecordID adalah identifier kanonik untuk record eksternal (customer, order,
// SOD, order request). ID dari platform eksternal datang dalam format campuran
// (huruf besar/kecil, kadang dibungkus kurung kurawal), jadi semua perbandingan
// dan key map memakai bentuk kanonik ini.
type RecordID string

// NewRecordID -> lowercase, strip braces, trim
func NewRecordID(raw string) RecordID {
	cleaned := strings.NewReplacer("{", "", "}", "").Replace(raw)
	return RecordID(strings.ToLower(strings.TrimSpace(cleaned)))
}

func (id RecordID) String() string {
	return string(id)
}

func (id RecordID) IsZero() bool {
	return id == "" || id == "undefined" || id == "null"
}

// Equal membandingkan dua raw ID lewat bentuk kanonik
func EqualID(a, b string) bool {
	return NewRecordID(a) == NewRecordID(b)
}
