/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"

	"sheetdesigner/internal/domain"
)

func tpl(name string) domain.TemplateData {
	return domain.NewTemplate("t", name, time.Unix(0, 0))
}

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Reset("set", "load", tpl("a"), t0)
	m.Push("rename", "", tpl("b"), t0.Add(time.Second))
	if n, idx, max := m.Stats(); n != 2 || idx != 1 || max != 50 {
		t.Fatalf("unexpected stats n=%d idx=%d max=%d", n, idx, max)
	}
	d, ok := m.Undo()
	if !ok || d.Name != "a" {
		t.Fatalf("undo expected 'a', got ok=%v name=%q", ok, d.Name)
	}
	if _, ok := m.Undo(); ok {
		t.Fatalf("undo past the first snapshot must fail")
	}
	d, ok = m.Redo()
	if !ok || d.Name != "b" {
		t.Fatalf("redo expected 'b', got ok=%v name=%q", ok, d.Name)
	}
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo past the last snapshot must fail")
	}
}

func TestPushAfterUndoDropsFuture(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Reset("set", "", tpl("a"), t0)
	m.Push("x", "", tpl("b"), t0)
	m.Push("x", "", tpl("c"), t0)
	m.Undo()
	m.Push("x", "", tpl("d"), t0)
	if m.CanRedo() {
		t.Fatalf("redo must be lost after a new push")
	}
	st := m.State()
	if len(st.Items) != 3 || st.Items[2].Data.Name != "d" || st.CurrentIndex != 2 {
		t.Fatalf("unexpected history %+v", st)
	}
}

func TestRepeatedActionKeepsEveryStep(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Reset("set", "", tpl("0"), t0)
	for i, name := range []string{"1", "2", "3"} {
		m.Push("nudge", "", tpl(name), t0.Add(time.Duration(i)*time.Millisecond))
	}
	if n, _, _ := m.Stats(); n != 4 {
		t.Fatalf("expected one snapshot per push, got %d", n)
	}
	for _, want := range []string{"2", "1", "0"} {
		d, ok := m.Undo()
		if !ok || d.Name != want {
			t.Fatalf("undo = %q (%v), want %q", d.Name, ok, want)
		}
	}
	if m.CanUndo() {
		t.Fatalf("reset snapshot must be the floor")
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxItems: 3})
	t0 := time.Now()
	m.Reset("set", "", tpl("0"), t0)
	for i := 1; i < 10; i++ {
		m.Push("x", "", tpl(string(rune('0'+i))), t0)
	}
	st := m.State()
	if len(st.Items) != 3 || st.CurrentIndex != 2 {
		t.Fatalf("expected cap of 3 with index 2, got len=%d idx=%d", len(st.Items), st.CurrentIndex)
	}
	if st.Items[0].Data.Name != "7" {
		t.Fatalf("oldest entries should be evicted, first is %q", st.Items[0].Data.Name)
	}
}

func TestSnapshotsAreIndependent(t *testing.T) {
	m := NewManager(Config{})
	live := tpl("a")
	live.Metadata.Tags = []string{"x"}
	m.Reset("set", "", live, time.Now())
	live.Metadata.Tags[0] = "mutated"
	m.Push("x", "", tpl("b"), time.Now())
	d, _ := m.Undo()
	if d.Metadata.Tags[0] != "x" {
		t.Fatalf("stored snapshot changed after live mutation: %v", d.Metadata.Tags)
	}
	d.Metadata.Tags[0] = "again"
	if m.State().Items[0].Data.Metadata.Tags[0] != "x" {
		t.Fatalf("returned snapshot aliases history")
	}
}

func TestClearAndIDs(t *testing.T) {
	n := 0
	m := NewManager(Config{NewID: func() string { n++; return string(rune('a' + n)) }})
	m.Reset("set", "", tpl("a"), time.Now())
	it := m.Push("x", "", tpl("b"), time.Now())
	if it.ID != "c" {
		t.Fatalf("expected injected id, got %q", it.ID)
	}
	m.Clear()
	if st := m.State(); len(st.Items) != 0 || st.CurrentIndex != -1 {
		t.Fatalf("expected empty history, got %+v", st)
	}
	if m.CanUndo() || m.CanRedo() {
		t.Fatalf("cleared history cannot undo or redo")
	}
}

func TestDefaultIDsAreKSUIDs(t *testing.T) {
	m := NewManager(Config{})
	it := m.Push("x", "", tpl("a"), time.Now())
	if len(it.ID) != 27 {
		t.Fatalf("expected 27-char ksuid, got %q", it.ID)
	}
}
