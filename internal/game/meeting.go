package game

import (
	"sort"
	"strings"
)

// VoteSkip is the ballot that votes to eject nobody.
const VoteSkip = "skip"

// meetingSpeakerOrder returns the living players in id order, rotated so
// the meeting caller speaks first.
func (s *State) meetingSpeakerOrder(caller string) []string {
	alive := s.AliveIDs()
	for i, id := range alive {
		if id == caller {
			return append(append([]string(nil), alive[i:]...), alive[:i]...)
		}
	}
	return alive
}

// AppendChat records one discussion utterance, trimmed to the configured
// character limit. Empty utterances are dropped.
func (s *State) AppendChat(speaker string, rotation int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if limit := s.Config.MessageCharLimit; limit > 0 {
		runes := []rune(text)
		if len(runes) > limit {
			text = string(runes[:limit])
		}
	}
	s.ChatHistory = append(s.ChatHistory, ChatMessage{Speaker: speaker, Rotation: rotation, Text: text})
}

// sanitizeVote maps anything that is not "skip" or a living player id to
// a skip ballot.
func (s *State) sanitizeVote(vote string) string {
	if vote == VoteSkip {
		return VoteSkip
	}
	if p, ok := s.Players[vote]; ok && p.Alive {
		return vote
	}
	return VoteSkip
}

// TallyVotes counts sanitized ballots and picks the ejection target: the
// unique candidate with the most votes, unless that candidate is skip or
// the top is tied, in which case nobody is ejected.
func (s *State) TallyVotes(votes map[string]string) (map[string]int, string) {
	tally := make(map[string]int, len(votes))
	for voter, vote := range votes {
		p, ok := s.Players[voter]
		if !ok || !p.Alive {
			continue
		}
		tally[s.sanitizeVote(vote)]++
	}

	best, bestCount, tied := "", 0, false
	candidates := make([]string, 0, len(tally))
	for candidate := range tally {
		candidates = append(candidates, candidate)
	}
	sort.Strings(candidates)
	for _, candidate := range candidates {
		switch n := tally[candidate]; {
		case n > bestCount:
			best, bestCount, tied = candidate, n, false
		case n == bestCount:
			tied = true
		}
	}
	if best == "" || best == VoteSkip || tied {
		return tally, ""
	}
	return tally, best
}

// ConcludeMeeting tallies the votes, applies any ejection, archives the
// meeting, and returns the game to TASK phase (or ends it if the ejection
// settles the win conditions). It is a no-op outside a meeting.
func (s *State) ConcludeMeeting(votes map[string]string) error {
	if s.MeetingContext == nil || s.Phase != PhaseVoting {
		return nil
	}

	sanitized := make(map[string]string, len(votes))
	for voter, vote := range votes {
		if p, ok := s.Players[voter]; ok && p.Alive {
			sanitized[voter] = s.sanitizeVote(vote)
		}
	}
	tally, ejected := s.TallyVotes(sanitized)

	record := MeetingRecord{
		Round:      s.Round,
		Trigger:    s.MeetingContext.Trigger,
		Caller:     s.MeetingContext.Caller,
		BodyFound:  s.MeetingContext.BodyFound,
		Transcript: append([]ChatMessage(nil), s.ChatHistory...),
		Votes:      sanitized,
		Tally:      tally,
		Ejected:    ejected,
	}
	if ejected != "" {
		p := s.Players[ejected]
		p.Alive = false
		p.Ejected = true
		if s.Config.ConfirmEjects {
			record.RoleRevealed = p.Role
		}
	}
	s.MeetingHistory = append(s.MeetingHistory, record)

	s.MeetingContext = nil
	s.SpeakerOrder = nil
	s.ChatHistory = nil
	s.Phase = PhaseTask
	s.checkWin()
	return s.checkInvariants()
}

// BeginVoting moves a finished discussion into the voting step.
func (s *State) BeginVoting() {
	if s.Phase == PhaseDiscussion {
		s.Phase = PhaseVoting
	}
}
