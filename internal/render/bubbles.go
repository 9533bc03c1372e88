/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/vector"
)

// Bubble is one answer option of an objective question.
type Bubble struct {
	Question int
	Option   int
	Letter   string
	Center   vector.Pt
	Radius   float64
}

// QuestionCell groups the bubbles of one question with its number label.
type QuestionCell struct {
	Number  int
	LabelAt vector.Pt
	Cell    vector.Rect
	Bubbles []Bubble
}

// ObjectiveBubbles lays out the bubble grid of an objective region.
//
// Questions fill rows of QuestionsPerRow cells left to right. In a horizontal
// layout a cell is the number label (two bubbles wide) followed by the
// options in a row; in a vertical layout the label sits on top and the
// options run down a column. Spacing separates bubbles, cells and the
// region border. Cells that fall outside b are still returned so callers
// can detect overflow with Overflows. Question and option counts are capped
// at domain.MaxQuestionCount and domain.MaxOptionsPerQuestion.
func ObjectiveBubbles(b vector.Rect, p *domain.ObjectiveProps) []QuestionCell {
	if p.QuestionCount < 1 || p.OptionsPerQuestion < 1 || p.BubbleSize <= 0 {
		return nil
	}
	count := min(p.QuestionCount, domain.MaxQuestionCount)
	nopts := min(p.OptionsPerQuestion, domain.MaxOptionsPerQuestion)
	perRow := max(1, p.QuestionsPerRow)
	size, gap := p.BubbleSize, p.Spacing
	label := 2 * size
	opts := float64(nopts)

	var cellW, cellH float64
	if p.Layout == domain.Vertical {
		cellW = label
		cellH = size + opts*(size+gap) - gap
	} else {
		cellW = label + opts*(size+gap) - gap
		cellH = size
	}

	out := make([]QuestionCell, 0, count)
	for q := 0; q < count; q++ {
		row, col := q/perRow, q%perRow
		ox := b.X + gap + float64(col)*(cellW+gap)
		oy := b.Y + gap + float64(row)*(cellH+gap)
		cell := QuestionCell{
			Number: p.StartQuestionNumber + q,
			Cell:   vector.R(ox, oy, cellW, cellH),
		}
		for o := 0; o < nopts; o++ {
			var c vector.Pt
			if p.Layout == domain.Vertical {
				c = vector.Pt{X: ox + cellW/2, Y: oy + size + gap + float64(o)*(size+gap) + size/2}
			} else {
				c = vector.Pt{X: ox + label + gap + float64(o)*(size+gap) + size/2, Y: oy + size/2}
			}
			cell.Bubbles = append(cell.Bubbles, Bubble{
				Question: cell.Number,
				Option:   o,
				Letter:   OptionLetter(o),
				Center:   c,
				Radius:   size / 2,
			})
		}
		cell.LabelAt = vector.Pt{X: ox, Y: oy + size*0.8}
		out = append(out, cell)
	}
	return out
}

// Overflows reports whether any bubble cell extends beyond b.
func Overflows(b vector.Rect, cells []QuestionCell) bool {
	for _, c := range cells {
		if !b.ContainsRect(c.Cell) {
			return true
		}
	}
	return false
}

// OptionLetter names option i as A, B, ..., Z, AA, AB, ...
func OptionLetter(i int) string {
	s := ""
	for i >= 0 {
		s = string(rune('A'+i%26)) + s
		i = i/26 - 1
	}
	return s
}
