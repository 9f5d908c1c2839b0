/*-------------------------------------------------------------------------
 *
 * jsonb.go
 *    JSONB column support
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/db/jsonb.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

/* JSONBMap maps a Postgres jsonb column onto a Go map */
type JSONBMap map[string]interface{}

func (m JSONBMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONBMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb scan failed: unsupported source type %T", src)
	}
	return json.Unmarshal(data, m)
}

/* ToMap converts a JSONBMap to a plain map */
func (m JSONBMap) ToMap() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(m)
}

/* FromMap converts a plain map to a JSONBMap */
func FromMap(m map[string]interface{}) JSONBMap {
	if m == nil {
		return JSONBMap{}
	}
	return JSONBMap(m)
}
