package planner

import (
	"strings"

	"github.com/scoutline/scoutline/internal/textnorm"
)

// MaxFollowUps is the number of follow-up questions offered after an answer.
const MaxFollowUps = 3

// FollowUpFallback builds templated follow-up questions around the user's topic.
func FollowUpFallback(userQuery string) []string {
	raw := strings.TrimSpace(trailingPunctPattern.ReplaceAllString(textnorm.CollapseSpaces(userQuery), ""))
	topic := raw
	if topic == "" {
		topic = "이 주제"
	}
	topic = strings.TrimSpace(textnorm.Truncate(topic, 36))

	return []string{
		topic + "를 단계별 실행 체크리스트로 정리해줘.",
		topic + "에서 우선순위 높은 작업 5가지만 뽑아줘.",
		topic + " 진행 중 자주 막히는 지점과 해결법 알려줘.",
	}
}

// NormalizeFollowUps keeps up to MaxFollowUps distinct, non-empty questions that differ
// from the user's own query.
func NormalizeFollowUps(raw any, userQuery string) []string {
	userNorm := textnorm.NormalizeForCompare(userQuery)
	seen := make(map[string]struct{})
	out := make([]string, 0, MaxFollowUps)

	for _, item := range stringList(raw) {
		q := textnorm.CollapseSpaces(item)
		if q == "" {
			continue
		}
		norm := textnorm.NormalizeForCompare(q)
		if norm == "" || norm == userNorm {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, q)
		if len(out) == MaxFollowUps {
			break
		}
	}
	return out
}
