/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package schema validates templates and converts them to and from their
// serialized text form.
package schema

import (
	"errors"
	"fmt"
)

// Code classifies a failed Result.
type Code string

const (
	CodeEmptyName                Code = "EmptyName"
	CodeNoRegions                Code = "NoRegions"
	CodeInvalidDimensions        Code = "InvalidDimensions"
	CodeDuplicateID              Code = "DuplicateID"
	CodeMalformedText            Code = "MalformedText"
	CodeInvalidFormat            Code = "InvalidFormat"
	CodeUnsupportedSchemaVersion Code = "UnsupportedSchemaVersion"
)

var (
	ErrEmptyName                = errors.New("template name is empty")
	ErrNoRegions                = errors.New("template has no regions")
	ErrInvalidDimensions        = errors.New("region has invalid dimensions")
	ErrDuplicateID              = errors.New("region id is not unique")
	ErrMalformedText            = errors.New("template text cannot be parsed")
	ErrInvalidFormat            = errors.New("template is missing required fields")
	ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")
)

var sentinels = map[Code]error{
	CodeEmptyName:                ErrEmptyName,
	CodeNoRegions:                ErrNoRegions,
	CodeInvalidDimensions:        ErrInvalidDimensions,
	CodeDuplicateID:              ErrDuplicateID,
	CodeMalformedText:            ErrMalformedText,
	CodeInvalidFormat:            ErrInvalidFormat,
	CodeUnsupportedSchemaVersion: ErrUnsupportedSchemaVersion,
}

// Result is the outcome of validation or import. Failures never panic or
// return a Go error from the producing call; callers decide what to show.
type Result struct {
	Success  bool     `json:"success"`
	Code     Code     `json:"code,omitempty"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// OK returns a successful result carrying warnings.
func OK(warnings ...string) Result {
	return Result{Success: true, Warnings: warnings}
}

// Fail builds a failed result for code with a formatted detail message.
func Fail(code Code, format string, args ...any) Result {
	return Result{Code: code, Error: fmt.Sprintf(format, args...)}
}

// Err converts a failed result into an error that matches the code's
// sentinel under errors.Is. It is nil for successful results.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if s, ok := sentinels[r.Code]; ok {
		return fmt.Errorf("%w: %s", s, r.Error)
	}
	return errors.New(r.Error)
}
