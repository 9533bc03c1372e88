/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"sheetdesigner/internal/vector"
)

// RegionType tags the variant of a Region.
type RegionType string

const (
	RegionAnchor     RegionType = "anchor"
	RegionBarcode    RegionType = "barcode"
	RegionObjective  RegionType = "objective"
	RegionSubjective RegionType = "subjective"
)

// RegionTypes lists every variant in a stable order.
var RegionTypes = []RegionType{RegionAnchor, RegionBarcode, RegionObjective, RegionSubjective}

// Label is the human name used for default region names.
func (t RegionType) Label() string {
	switch t {
	case RegionAnchor:
		return "Anchor"
	case RegionBarcode:
		return "Barcode"
	case RegionObjective:
		return "Objective"
	case RegionSubjective:
		return "Subjective"
	}
	return string(t)
}

// Base holds the fields shared by every region. Coordinates are world units.
type Base struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Name    string  `json:"name"`
	Visible bool    `json:"visible"`
	Locked  bool    `json:"locked"`
	ZIndex  int     `json:"zIndex"`
}

// Rect returns the bounding box of the region.
func (b Base) Rect() vector.Rect { return vector.R(b.X, b.Y, b.Width, b.Height) }

// Variant is the closed set of region payloads: *AnchorProps, *BarcodeProps,
// *ObjectiveProps and *SubjectiveProps.
type Variant interface {
	Kind() RegionType
	clone() Variant
	check() error
}

// Region is a positioned, typed shape on a template.
type Region struct {
	Base
	Props Variant
}

// Type returns the variant tag, or "" when Props is unset.
func (r Region) Type() RegionType {
	if r.Props == nil {
		return ""
	}
	return r.Props.Kind()
}

// Bounds is the region's world-space rectangle.
func (r Region) Bounds() vector.Rect { return r.Base.Rect() }

// Clone deep-copies the region including its variant payload.
func (r Region) Clone() Region {
	out := r
	if r.Props != nil {
		out.Props = r.Props.clone()
	}
	return out
}

// CheckProps validates enum fields and counts of the variant payload.
func (r Region) CheckProps() error {
	if r.Props == nil {
		return errors.New("region has no type")
	}
	return r.Props.check()
}

// Precision of an anchor mark.
type Precision string

const (
	PrecisionHigh   Precision = "high"
	PrecisionMedium Precision = "medium"
	PrecisionLow    Precision = "low"
)

// AnchorShape is the printed registration mark.
type AnchorShape string

const (
	AnchorCircle AnchorShape = "circle"
	AnchorSquare AnchorShape = "square"
	AnchorCross  AnchorShape = "cross"
)

// AnchorProps describe a registration mark used for physical alignment.
type AnchorProps struct {
	AnchorID  string      `json:"anchorId"`
	Precision Precision   `json:"precision"`
	Shape     AnchorShape `json:"shape"`
}

func (p *AnchorProps) Kind() RegionType { return RegionAnchor }
func (p *AnchorProps) clone() Variant   { c := *p; return &c }
func (p *AnchorProps) check() error {
	switch p.Precision {
	case PrecisionHigh, PrecisionMedium, PrecisionLow:
	default:
		return fmt.Errorf("invalid anchor precision %q", p.Precision)
	}
	switch p.Shape {
	case AnchorCircle, AnchorSquare, AnchorCross:
	default:
		return fmt.Errorf("invalid anchor shape %q", p.Shape)
	}
	return nil
}

// BarcodeType is the symbology printed in a barcode region.
type BarcodeType string

const (
	BarcodeCode128    BarcodeType = "code128"
	BarcodeQR         BarcodeType = "qr"
	BarcodeDataMatrix BarcodeType = "datamatrix"
)

// Orientation of a barcode or of an objective block's bubble rows.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// BarcodeProps describe a student/exam identification barcode.
type BarcodeProps struct {
	BarcodeType BarcodeType `json:"barcodeType"`
	Orientation Orientation `json:"orientation"`
}

func (p *BarcodeProps) Kind() RegionType { return RegionBarcode }
func (p *BarcodeProps) clone() Variant   { c := *p; return &c }
func (p *BarcodeProps) check() error {
	switch p.BarcodeType {
	case BarcodeCode128, BarcodeQR, BarcodeDataMatrix:
	default:
		return fmt.Errorf("invalid barcode type %q", p.BarcodeType)
	}
	if p.Orientation != Horizontal && p.Orientation != Vertical {
		return fmt.Errorf("invalid barcode orientation %q", p.Orientation)
	}
	return nil
}

// BubbleStyle is the printed shape of an answer bubble.
type BubbleStyle string

const (
	BubbleCircle BubbleStyle = "circle"
	BubbleSquare BubbleStyle = "square"
	BubbleOval   BubbleStyle = "oval"
)

// Upper bounds on generated geometry. Rendering clamps to them so a hostile
// or mistyped template cannot make it allocate without limit.
const (
	MaxQuestionCount      = 1000
	MaxOptionsPerQuestion = 26
	MinLineSpacing        = 4.0
	MaxAnswerLines        = 500
)

// ObjectiveProps describe a grid of answer bubbles for multiple-choice questions.
// Layout decides whether a question's options run along a row (horizontal)
// or down a column (vertical).
type ObjectiveProps struct {
	StartQuestionNumber int         `json:"startQuestionNumber"`
	QuestionCount       int         `json:"questionCount"`
	OptionsPerQuestion  int         `json:"optionsPerQuestion"`
	QuestionsPerRow     int         `json:"questionsPerRow"`
	Layout              Orientation `json:"layout"`
	ScorePerQuestion    float64     `json:"scorePerQuestion"`
	BubbleStyle         BubbleStyle `json:"bubbleStyle"`
	BubbleSize          float64     `json:"bubbleSize"`
	Spacing             float64     `json:"spacing"`
}

func (p *ObjectiveProps) Kind() RegionType { return RegionObjective }
func (p *ObjectiveProps) clone() Variant   { c := *p; return &c }
func (p *ObjectiveProps) check() error {
	if p.QuestionCount < 1 || p.OptionsPerQuestion < 1 || p.QuestionsPerRow < 1 {
		return fmt.Errorf("objective counts must be positive (questions=%d options=%d perRow=%d)",
			p.QuestionCount, p.OptionsPerQuestion, p.QuestionsPerRow)
	}
	if p.QuestionCount > MaxQuestionCount || p.OptionsPerQuestion > MaxOptionsPerQuestion {
		return fmt.Errorf("objective block too large (questions=%d max %d, options=%d max %d)",
			p.QuestionCount, MaxQuestionCount, p.OptionsPerQuestion, MaxOptionsPerQuestion)
	}
	if p.Layout != Horizontal && p.Layout != Vertical {
		return fmt.Errorf("invalid objective layout %q", p.Layout)
	}
	switch p.BubbleStyle {
	case BubbleCircle, BubbleSquare, BubbleOval:
	default:
		return fmt.Errorf("invalid bubble style %q", p.BubbleStyle)
	}
	if p.BubbleSize <= 0 {
		return fmt.Errorf("bubble size must be positive, got %v", p.BubbleSize)
	}
	return nil
}

// LastQuestionNumber is the number of the final question in the block.
func (p *ObjectiveProps) LastQuestionNumber() int {
	return p.StartQuestionNumber + p.QuestionCount - 1
}

// MaxScore is the score of the whole block.
func (p *ObjectiveProps) MaxScore() float64 {
	return float64(p.QuestionCount) * p.ScorePerQuestion
}

// SubjectiveProps describe a free-response answer area.
type SubjectiveProps struct {
	QuestionNumber int     `json:"questionNumber"`
	TotalScore     float64 `json:"totalScore"`
	QuestionType   string  `json:"questionType"`
	HasLines       bool    `json:"hasLines"`
	LineSpacing    float64 `json:"lineSpacing"`
	Margin         float64 `json:"margin"`
}

func (p *SubjectiveProps) Kind() RegionType { return RegionSubjective }
func (p *SubjectiveProps) clone() Variant   { c := *p; return &c }
func (p *SubjectiveProps) check() error {
	if p.HasLines && p.LineSpacing < MinLineSpacing {
		return fmt.Errorf("line spacing must be at least %v when lines are drawn, got %v", MinLineSpacing, p.LineSpacing)
	}
	if p.Margin < 0 {
		return fmt.Errorf("margin must not be negative, got %v", p.Margin)
	}
	return nil
}

// DefaultProps returns the variant payload a freshly drawn region gets.
func DefaultProps(t RegionType) (Variant, error) {
	switch t {
	case RegionAnchor:
		return &AnchorProps{Precision: PrecisionHigh, Shape: AnchorSquare}, nil
	case RegionBarcode:
		return &BarcodeProps{BarcodeType: BarcodeCode128, Orientation: Horizontal}, nil
	case RegionObjective:
		return &ObjectiveProps{
			StartQuestionNumber: 1,
			QuestionCount:       5,
			OptionsPerQuestion:  4,
			QuestionsPerRow:     1,
			Layout:              Horizontal,
			ScorePerQuestion:    2,
			BubbleStyle:         BubbleCircle,
			BubbleSize:          12,
			Spacing:             6,
		}, nil
	case RegionSubjective:
		return &SubjectiveProps{
			QuestionNumber: 1,
			TotalScore:     10,
			QuestionType:   "essay",
			HasLines:       true,
			LineSpacing:    24,
			Margin:         8,
		}, nil
	}
	return nil, fmt.Errorf("unknown region type %q", t)
}

// NewRegion builds a visible region of type t covering rect with default props.
// Width and height are floored at 1.
func NewRegion(t RegionType, id string, rect vector.Rect) (Region, error) {
	props, err := DefaultProps(t)
	if err != nil {
		return Region{}, err
	}
	if a, ok := props.(*AnchorProps); ok {
		a.AnchorID = id
	}
	return Region{
		Base: Base{
			ID:      id,
			X:       rect.X,
			Y:       rect.Y,
			Width:   ClampExtent(rect.W),
			Height:  ClampExtent(rect.H),
			Name:    t.Label(),
			Visible: true,
		},
		Props: props,
	}, nil
}

// ClampExtent floors a width or height at 1.
func ClampExtent(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}

// Serialized regions are flat objects: {"type": ..., base fields..., variant fields...}.

func (r Region) MarshalJSON() ([]byte, error) {
	switch p := r.Props.(type) {
	case *AnchorProps:
		return json.Marshal(struct {
			Type RegionType `json:"type"`
			Base
			*AnchorProps
		}{RegionAnchor, r.Base, p})
	case *BarcodeProps:
		return json.Marshal(struct {
			Type RegionType `json:"type"`
			Base
			*BarcodeProps
		}{RegionBarcode, r.Base, p})
	case *ObjectiveProps:
		return json.Marshal(struct {
			Type RegionType `json:"type"`
			Base
			*ObjectiveProps
		}{RegionObjective, r.Base, p})
	case *SubjectiveProps:
		return json.Marshal(struct {
			Type RegionType `json:"type"`
			Base
			*SubjectiveProps
		}{RegionSubjective, r.Base, p})
	case nil:
		return nil, fmt.Errorf("region %q has no type", r.ID)
	default:
		return nil, fmt.Errorf("region %q has unsupported variant %T", r.ID, p)
	}
}

func (r *Region) UnmarshalJSON(b []byte) error {
	var head struct {
		Type RegionType `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	var props Variant
	switch head.Type {
	case RegionAnchor:
		props = &AnchorProps{}
	case RegionBarcode:
		props = &BarcodeProps{}
	case RegionObjective:
		props = &ObjectiveProps{}
	case RegionSubjective:
		props = &SubjectiveProps{}
	default:
		return fmt.Errorf("unknown region type %q", head.Type)
	}
	// regions written without the flag are shown
	base := Base{Visible: true}
	if err := json.Unmarshal(b, &base); err != nil {
		return err
	}
	if err := json.Unmarshal(b, props); err != nil {
		return fmt.Errorf("region %q: %w", base.ID, err)
	}
	r.Base = base
	r.Props = props
	return nil
}
