// Package diarization turns raw speaker turns into the broker/client split.
//
// The broker is the speaker with the most turns. With a single detected
// speaker there is no broker and the whole recording is client speech.
package diarization

import (
	"github.com/yoockh/callsplit/internal/models"
)

type SpeakerStats struct {
	TotalDuration      float64          `json:"total_duration"`
	NumSegments        int              `json:"num_segments"`
	Segments           []models.Segment `json:"segments"`
	AvgSegmentDuration float64          `json:"avg_segment_duration"`
}

type Analysis struct {
	Broker        string // empty when no broker was identified
	Clients       []string
	Speakers      []string // first-appearance order
	Stats         map[string]*SpeakerStats
	SingleSpeaker bool
}

func (a Analysis) HasBroker() bool { return a.Broker != "" }

func Analyze(turns []models.Turn) Analysis {
	stats := map[string]*SpeakerStats{}
	var order []string

	for _, t := range turns {
		st, ok := stats[t.Speaker]
		if !ok {
			st = &SpeakerStats{}
			stats[t.Speaker] = st
			order = append(order, t.Speaker)
		}
		d := t.Duration()
		st.TotalDuration += d
		st.NumSegments++
		st.Segments = append(st.Segments, models.Segment{Start: t.Start, End: t.End, Duration: d})
	}

	a := Analysis{Stats: stats, Speakers: order, Clients: []string{}}
	switch len(order) {
	case 0:
		a.SingleSpeaker = true
		return a
	case 1:
		a.SingleSpeaker = true
		a.Clients = []string{order[0]}
	}

	for _, st := range stats {
		st.AvgSegmentDuration = st.TotalDuration / float64(st.NumSegments)
	}
	if a.SingleSpeaker {
		return a
	}

	// strict > keeps the earliest speaker on ties
	broker := order[0]
	for _, s := range order[1:] {
		if stats[s].NumSegments > stats[broker].NumSegments {
			broker = s
		}
	}
	a.Broker = broker
	for _, s := range order {
		if s != broker {
			a.Clients = append(a.Clients, s)
		}
	}
	return a
}

// ClientSegments returns the turns attributed to the client, in turn order.
func ClientSegments(turns []models.Turn, a Analysis) []models.Segment {
	out := []models.Segment{}
	for _, t := range turns {
		if !a.SingleSpeaker && a.HasBroker() && t.Speaker == a.Broker {
			continue
		}
		out = append(out, models.Segment{
			Start:    t.Start,
			End:      t.End,
			Duration: t.Duration(),
			Speaker:  t.Speaker,
		})
	}
	return out
}

func BuildResult(turns []models.Turn) (*models.DiarizationResult, Analysis) {
	a := Analyze(turns)
	segs := ClientSegments(turns, a)

	var clientDur float64
	for _, s := range segs {
		clientDur += s.Duration
	}

	res := &models.DiarizationResult{
		Success:           true,
		TotalSpeakers:     len(a.Speakers),
		ClientSpeakers:    a.Clients,
		ClientSegments:    segs,
		SingleSpeakerMode: a.SingleSpeaker,
		Stats: models.DiarizationStats{
			ClientDuration:    clientDur,
			ClientNumSegments: len(segs),
		},
	}
	if !a.SingleSpeaker && a.HasBroker() {
		broker := a.Broker
		res.BrokerSpeaker = &broker
		res.Stats.BrokerDuration = a.Stats[broker].TotalDuration
		res.Stats.BrokerNumSegments = a.Stats[broker].NumSegments
	}
	return res, a
}

func FailureResult(err error) models.DiarizationFailure {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return models.DiarizationFailure{
		Success:        false,
		Error:          msg,
		ClientSegments: []models.Segment{},
	}
}
