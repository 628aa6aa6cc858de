package diarizer

import (
	"context"
	"fmt"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/providers/gcpspeech"
	"github.com/yoockh/callsplit/internal/utils"
)

// GoogleSpeech diarizes with Cloud Speech speaker tags.
type GoogleSpeech struct {
	c          *speech.Client
	language   string
	maxRetries int
}

func NewGoogleSpeech(ctx context.Context, language string) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GoogleSpeech{c: c, language: utils.LanguageCode(language), maxRetries: 4}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) Name() string { return "gcp" }

func (g *GoogleSpeech) IsAvailable(context.Context) bool { return g.c != nil }

func (g *GoogleSpeech) Diarize(ctx context.Context, audioPath string) (*Output, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, err
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:              gcpspeech.EncodingFor(audioPath),
			LanguageCode:          g.language,
			EnableWordTimeOffsets: true,
			DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
				EnableSpeakerDiarization: true,
				MinSpeakerCount:          1,
				MaxSpeakerCount:          6,
			},
		},
		Audio: &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}

	resp, err := gcpspeech.WithRetry(ctx, g.maxRetries, func() (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := g.c.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("speech longrunningrecognize: %w", err)
	}
	return &Output{Turns: turnsFromResponse(resp), Model: "gcp-speech"}, nil
}

type taggedWord struct {
	tag        int32
	start, end float64
}

// turnsFromResponse merges consecutive words sharing a speaker tag into one
// turn. With diarization on, the last result carries every word with its tag.
func turnsFromResponse(resp *speechpb.LongRunningRecognizeResponse) []models.Turn {
	turns := []models.Turn{}
	if resp == nil || len(resp.Results) == 0 {
		return turns
	}

	var words []taggedWord
	for i := len(resp.Results) - 1; i >= 0 && len(words) == 0; i-- {
		r := resp.Results[i]
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		for _, w := range r.Alternatives[0].Words {
			if w == nil || w.SpeakerTag == 0 {
				continue
			}
			words = append(words, taggedWord{
				tag:   w.SpeakerTag,
				start: w.StartTime.AsDuration().Seconds(),
				end:   w.EndTime.AsDuration().Seconds(),
			})
		}
	}
	if len(words) == 0 {
		return turns
	}

	cur := models.Turn{Speaker: speakerLabel(words[0].tag), Start: words[0].start, End: words[0].end}
	curTag := words[0].tag
	for _, w := range words[1:] {
		if w.tag != curTag {
			turns = append(turns, cur)
			cur = models.Turn{Speaker: speakerLabel(w.tag), Start: w.start, End: w.end}
			curTag = w.tag
			continue
		}
		if w.end > cur.End {
			cur.End = w.end
		}
	}
	return append(turns, cur)
}

// speakerLabel maps tag 1 to SPEAKER_00 so labels match pyannote's.
func speakerLabel(tag int32) string { return fmt.Sprintf("SPEAKER_%02d", tag-1) }
