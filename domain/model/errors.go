package model

import "errors"

// ErrDuplicateColumnName is returned when a header contains duplicate column names
var ErrDuplicateColumnName = errors.New("tabql: duplicate column name")
