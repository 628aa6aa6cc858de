package diarization

import (
	"errors"
	"math"
	"testing"

	"github.com/yoockh/callsplit/internal/models"
)

func turn(spk string, start, end float64) models.Turn {
	return models.Turn{Speaker: spk, Start: start, End: end}
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAnalyzeBrokerHasMostTurns(t *testing.T) {
	turns := []models.Turn{
		turn("SPEAKER_00", 0, 10),
		turn("SPEAKER_01", 10, 11),
		turn("SPEAKER_00", 11, 30),
		turn("SPEAKER_01", 30, 31),
		turn("SPEAKER_01", 31, 32),
	}
	a := Analyze(turns)
	if a.Broker != "SPEAKER_01" {
		t.Fatalf("broker: want=%q got=%q", "SPEAKER_01", a.Broker)
	}
	if len(a.Clients) != 1 || a.Clients[0] != "SPEAKER_00" {
		t.Fatalf("clients: got=%v", a.Clients)
	}
	if a.SingleSpeaker {
		t.Fatalf("single speaker: want=false")
	}
	if !almost(a.Stats["SPEAKER_00"].AvgSegmentDuration, 14.5) {
		t.Fatalf("avg duration: got=%v", a.Stats["SPEAKER_00"].AvgSegmentDuration)
	}
}

func TestAnalyzeTieGoesToFirstSpeaker(t *testing.T) {
	turns := []models.Turn{
		turn("B", 0, 1),
		turn("A", 1, 2),
		turn("A", 2, 3),
		turn("B", 3, 4),
	}
	a := Analyze(turns)
	if a.Broker != "B" {
		t.Fatalf("broker: want=%q got=%q", "B", a.Broker)
	}
}

func TestAnalyzeNoTurns(t *testing.T) {
	a := Analyze(nil)
	if a.HasBroker() || !a.SingleSpeaker || len(a.Clients) != 0 {
		t.Fatalf("unexpected analysis: %+v", a)
	}
}

func TestBuildResultSingleSpeaker(t *testing.T) {
	turns := []models.Turn{turn("SPEAKER_00", 0, 2), turn("SPEAKER_00", 3, 4.5)}
	res, _ := BuildResult(turns)

	if !res.Success || !res.SingleSpeakerMode {
		t.Fatalf("want success in single speaker mode: %+v", res)
	}
	if res.BrokerSpeaker != nil {
		t.Fatalf("broker: want=nil got=%q", *res.BrokerSpeaker)
	}
	if len(res.ClientSpeakers) != 1 || res.ClientSpeakers[0] != "SPEAKER_00" {
		t.Fatalf("client speakers: got=%v", res.ClientSpeakers)
	}
	if len(res.ClientSegments) != 2 {
		t.Fatalf("client segments: want=2 got=%d", len(res.ClientSegments))
	}
	if res.Stats.BrokerNumSegments != 0 || res.Stats.BrokerDuration != 0 {
		t.Fatalf("broker stats should be zero: %+v", res.Stats)
	}
	if !almost(res.Stats.ClientDuration, 3.5) {
		t.Fatalf("client duration: want=3.5 got=%v", res.Stats.ClientDuration)
	}
}

func TestBuildResultExcludesBroker(t *testing.T) {
	turns := []models.Turn{
		turn("S1", 0, 1),
		turn("S2", 1, 5),
		turn("S1", 5, 6),
		turn("S3", 6, 8),
		turn("S1", 8, 9),
	}
	res, _ := BuildResult(turns)

	if res.BrokerSpeaker == nil || *res.BrokerSpeaker != "S1" {
		t.Fatalf("broker: want=S1 got=%v", res.BrokerSpeaker)
	}
	if res.TotalSpeakers != 3 {
		t.Fatalf("total speakers: want=3 got=%d", res.TotalSpeakers)
	}
	var sum float64
	for _, s := range res.ClientSegments {
		if s.Speaker == "S1" {
			t.Fatalf("broker segment leaked into client segments: %+v", s)
		}
		sum += s.Duration
	}
	if res.Stats.ClientNumSegments != len(res.ClientSegments) {
		t.Fatalf("client_num_segments: want=%d got=%d", len(res.ClientSegments), res.Stats.ClientNumSegments)
	}
	if !almost(sum, res.Stats.ClientDuration) || !almost(sum, 6) {
		t.Fatalf("client duration: want=6 got=%v", res.Stats.ClientDuration)
	}
	if res.Stats.BrokerNumSegments != 3 || !almost(res.Stats.BrokerDuration, 3) {
		t.Fatalf("broker stats: %+v", res.Stats)
	}
	if res.ClientSegments[0].Start != 1 || res.ClientSegments[1].Start != 6 {
		t.Fatalf("client segments out of order: %+v", res.ClientSegments)
	}
}

func TestFailureResult(t *testing.T) {
	f := FailureResult(errors.New("model download failed"))
	if f.Success || f.Error != "model download failed" {
		t.Fatalf("unexpected failure: %+v", f)
	}
	if f.ClientSegments == nil || len(f.ClientSegments) != 0 {
		t.Fatalf("client segments must be an empty list")
	}
}
