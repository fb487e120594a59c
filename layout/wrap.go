package layout

import (
	"fmt"
	"strings"
)

// Wrap 以单词为粒度贪心折行，不拆分单词、不加连字符。
//
// 每次测量的候选串为当前累积串加上单词与一个空格；候选宽度超过 maxWidth
// 且累积串非空时，提交累积串（去除首尾空白）并以该单词重新开始。
// 循环结束后总会提交剩余部分，因此返回值至少包含一行（空文本得到一行空串）。
// 超宽的单词独占一行。
func Wrap(text string, font FontSpec, maxWidth float64, m Measurer) ([]Line, error) {
	if m == nil {
		return nil, fmt.Errorf("measurer 不能为空")
	}
	words := strings.Split(text, " ")
	lines := make([]Line, 0, 4)
	var line string
	for _, word := range words {
		candidate := line + word + " "
		w, err := m.MeasureText(candidate, font)
		if err != nil {
			return nil, fmt.Errorf("测量文本失败: %w", err)
		}
		if w > maxWidth && line != "" {
			committed, err := newLine(strings.TrimSpace(line), font, m)
			if err != nil {
				return nil, err
			}
			lines = append(lines, committed)
			line = word + " "
			continue
		}
		line = candidate
	}
	last, err := newLine(strings.TrimSpace(line), font, m)
	if err != nil {
		return nil, err
	}
	return append(lines, last), nil
}

func newLine(content string, font FontSpec, m Measurer) (Line, error) {
	if content == "" {
		return Line{}, nil
	}
	w, err := m.MeasureText(content, font)
	if err != nil {
		return Line{}, fmt.Errorf("测量文本失败: %w", err)
	}
	return Line{Content: content, Width: w}, nil
}

// NewTextBlock 折行并返回完整的文本块。
func NewTextBlock(text string, font FontSpec, maxWidth, lineHeight float64, m Measurer) (*TextBlock, error) {
	lines, err := Wrap(text, font, maxWidth, m)
	if err != nil {
		return nil, err
	}
	return &TextBlock{
		Text:       text,
		Font:       font,
		MaxWidth:   maxWidth,
		LineHeight: lineHeight,
		Lines:      lines,
	}, nil
}
