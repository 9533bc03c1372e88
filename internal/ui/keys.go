/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"strings"

	"sheetdesigner/internal/canvas"
)

// toolkitKeys maps toolkit key names to the controller's key vocabulary.
var toolkitKeys = map[string]string{
	"Delete":    canvas.KeyDelete,
	"BackSpace": canvas.KeyBackspace,
	"Escape":    canvas.KeyEscape,
	"Left":      canvas.KeyArrowLeft,
	"Right":     canvas.KeyArrowRight,
	"Up":        canvas.KeyArrowUp,
	"Down":      canvas.KeyArrowDown,
}

// translateKey converts a toolkit key name. Letters and digits become their
// lower-case character; anything else the controller does not use is dropped.
func translateKey(name string) (string, bool) {
	if k, ok := toolkitKeys[name]; ok {
		return k, true
	}
	if len(name) == 1 {
		c := name[0]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			return strings.ToLower(name), true
		}
	}
	return "", false
}

// modifiers packs held modifier keys.
func modifiers(shift, ctrl, alt, super bool) canvas.Modifiers {
	var m canvas.Modifiers
	if shift {
		m |= canvas.ModShift
	}
	if ctrl {
		m |= canvas.ModCtrl
	}
	if alt {
		m |= canvas.ModAlt
	}
	if super {
		m |= canvas.ModMeta
	}
	return m
}
