/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"time"

	"sheetdesigner/internal/vector"
)

// Modifiers is a bitmask of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

func (m Modifiers) Shift() bool { return m&ModShift != 0 }

// Command is Ctrl or Cmd (Meta).
func (m Modifiers) Command() bool { return m&(ModCtrl|ModMeta) != 0 }

// Additive reports whether a selection gesture should extend the selection.
func (m Modifiers) Additive() bool { return m&(ModShift|ModCtrl|ModMeta) != 0 }

// Button identifies a pointer button.
type Button uint8

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

// Event is the closed vocabulary the controller understands. Pointer
// positions are screen pixels relative to the canvas origin.
type Event interface{ isEvent() }

type PointerDown struct {
	Pos    vector.Pt
	Button Button
	Mods   Modifiers
	Time   time.Time
}

type PointerMove struct {
	Pos  vector.Pt
	Mods Modifiers
	Time time.Time
}

type PointerUp struct {
	Pos    vector.Pt
	Button Button
	Mods   Modifiers
	Time   time.Time
}

// Wheel zooms around Pos; negative DeltaY zooms in.
type Wheel struct {
	Pos    vector.Pt
	DeltaY float64
	Mods   Modifiers
	Time   time.Time
}

// KeyDown carries a key name such as "Delete", "Escape", "ArrowLeft" or a
// single lower-case character.
type KeyDown struct {
	Key  string
	Mods Modifiers
}

func (PointerDown) isEvent() {}
func (PointerMove) isEvent() {}
func (PointerUp) isEvent()   {}
func (Wheel) isEvent()       {}
func (KeyDown) isEvent()     {}

// Key names used by the shortcut table.
const (
	KeyDelete     = "Delete"
	KeyBackspace  = "Backspace"
	KeyEscape     = "Escape"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
)
