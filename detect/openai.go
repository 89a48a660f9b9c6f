package detect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

const (
	systemPrompt = "You are an expert at detecting people in golf course video frames. " +
		"Identify every person and report precise bounding box coordinates."

	maxParseRetries = 3
	maxTokens       = 500
)

// OpenAIOracle asks a vision-capable chat model for person bounding
// boxes. Responses are requested as a JSON object and parsed into typed
// detections; the clamping boundary still applies on top.
type OpenAIOracle struct {
	client *openai.Client
	model  openai.ChatModel
	log    *zap.Logger
}

func NewOpenAIOracle(apiKey, model string, log *zap.Logger) *OpenAIOracle {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIOracle{
		client: &client,
		model:  openai.ChatModel(model),
		log:    log.Named("oracle"),
	}
}

func (o *OpenAIOracle) Detect(ctx context.Context, jpeg []byte, width, height int) ([]Detection, error) {
	requestID := uuid.NewString()
	log := o.log.With(zap.String("request_id", requestID))

	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
	userMessage := fmt.Sprintf(
		"Detect all people in this %dx%d golf course image. For each person provide pixel "+
			"bounding box coordinates. Return a JSON object of the form "+
			`{"detections":[{"label":"person","confidence":0.9,"box":{"x":10,"y":20,"w":100,"h":200}}]}`+
			" with integer pixel coordinates relative to the image.",
		width, height)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(systemPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(userMessage),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= maxParseRetries; attempt++ {
		resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    o.model,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(maxTokens),
		})
		if err != nil {
			return nil, fmt.Errorf("detect: openai request: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("detect: openai returned no choices")
		}

		dets, err := parseOracleJSON(resp.Choices[0].Message.Content)
		if err != nil {
			lastErr = err
			log.Warn("oracle returned unparseable detections",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		log.Debug("oracle detections",
			zap.Int("raw", len(dets)),
			zap.Int("width", width),
			zap.Int("height", height))
		return Sanitize(dets, width, height), nil
	}

	return nil, fmt.Errorf("detect: oracle response unparseable after %d attempts: %w", maxParseRetries, lastErr)
}

type oracleResponse struct {
	Detections []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
		Box        Box     `json:"box"`
	} `json:"detections"`
}

// parseOracleJSON decodes the model's JSON reply into detections. The
// reply is untrusted: a missing detections array is an empty result, a
// structurally invalid document is an error worth retrying.
func parseOracleJSON(raw string) ([]Detection, error) {
	var parsed oracleResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("decode oracle json: %w", err)
	}

	dets := make([]Detection, 0, len(parsed.Detections))
	for _, d := range parsed.Detections {
		label := d.Label
		if label == "" {
			label = "person"
		}
		dets = append(dets, Detection{
			Label:      label,
			Confidence: d.Confidence,
			Box:        d.Box,
		})
	}
	return dets, nil
}
