package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Product is a catalog entry keyed by its barcode.
type Product struct {
	Code     string   `json:"codigo_barra" dynamodbav:"codigo_barra"`
	Name     string   `json:"nome_produto" dynamodbav:"nome_produto"`
	Location Location `json:"localizacao" dynamodbav:"localizacao"`
}

// Location is a shelf position. The catalog column is nullable: an unknown
// location is stored as SQL NULL and serialized as JSON null.
type Location string

func (l Location) String() string { return string(l) }

func (l Location) MarshalJSON() ([]byte, error) {
	if l == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(l))
}

// Scan implements sql.Scanner.
func (l *Location) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = ""
	case string:
		*l = Location(v)
	case []byte:
		*l = Location(v)
	default:
		return fmt.Errorf("scan location: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (l Location) Value() (driver.Value, error) {
	if l == "" {
		return nil, nil
	}
	return string(l), nil
}
