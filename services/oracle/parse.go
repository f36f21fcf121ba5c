package oracle

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	scoreMarker    = "评分"
	feedbackMarker = "评价"
)

// user-facing messages stored as AI feedback when grading fails
const (
	MsgScoreOutOfRange  = "AI返回的分数超出范围"
	MsgUnparsable       = "无法解析AI批改结果"
	MsgNoResult         = "AI批改失败，无法获取有效结果"
	MsgGradingErrPrefix = "AI批改出错: "

	MsgNoAnalysis     = "AI分析失败，无法获取有效结果"
	MsgTrendErrPrefix = "AI分析出错: "
)

var (
	ErrScoreOutOfRange = errors.New(MsgScoreOutOfRange)
	ErrUnparsable      = errors.New(MsgUnparsable)
)

// ParseGrading extracts the score and feedback from the model's answer, e.g.
//
//	1. 评分(0-100分): 87
//	2. 评价: Good work
//
// It returns ErrUnparsable when a line is missing or malformed and ErrScoreOutOfRange when
// the score is not within [0,100].
func ParseGrading(text string) (int, string, error) {
	lines := strings.Split(text, "\n")

	scoreTail, ok := markedValue(lines, scoreMarker)
	if !ok {
		return 0, "", ErrUnparsable
	}
	score, err := strconv.Atoi(scoreTail)
	if err != nil {
		return 0, "", ErrUnparsable
	}

	feedback, ok := markedValue(lines, feedbackMarker)
	if !ok {
		return 0, "", ErrUnparsable
	}

	if score < 0 || score > 100 {
		return 0, "", ErrScoreOutOfRange
	}
	return score, feedback, nil
}

// markedValue returns the trimmed text after the first colon of the first line containing marker.
func markedValue(lines []string, marker string) (string, bool) {
	for _, line := range lines {
		if !strings.Contains(line, marker) {
			continue
		}
		idx := strings.IndexAny(line, ":：")
		if idx < 0 {
			return "", false
		}
		_, size := utf8.DecodeRuneInString(line[idx:])
		return strings.TrimSpace(line[idx+size:]), true
	}
	return "", false
}
