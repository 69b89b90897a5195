package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/loopyhq/loopy/internal/services"
)

type stubAPI struct {
	chatResp openai.ChatCompletionResponse
	chatErr  error
	chatReqs []openai.ChatCompletionRequest

	imageResp openai.ImageResponse
	imageErr  error
	imageReqs []openai.ImageRequest
}

func (s *stubAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.chatReqs = append(s.chatReqs, req)
	return s.chatResp, s.chatErr
}

func (s *stubAPI) CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error) {
	s.imageReqs = append(s.imageReqs, req)
	return s.imageResp, s.imageErr
}

func chatReply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func newTestClient(stub *stubAPI) *Client {
	return &Client{
		api:        stub,
		model:      openai.GPT4oMini,
		imageModel: openai.CreateImageModelDallE3,
		logger:     zap.NewNop(),
	}
}

func TestSuggestQuestionsParsesJSONObject(t *testing.T) {
	stub := &stubAPI{chatResp: chatReply(`{"questions": ["One?", "Two?"]}`)}
	c := newTestClient(stub)

	got, err := c.SuggestQuestions(context.Background(), "friends", "weekly catchup", []string{"Old question?"})
	if err != nil {
		t.Fatalf("SuggestQuestions: %v", err)
	}
	if len(got) != 2 || got[0] != "One?" {
		t.Fatalf("questions = %v", got)
	}

	req := stub.chatReqs[0]
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("suggestions must request JSON mode, got %+v", req.ResponseFormat)
	}
	prompt := req.Messages[0].Content
	if !strings.Contains(prompt, "Old question?") {
		t.Fatalf("existing questions missing from prompt:\n%s", prompt)
	}
}

func TestSuggestQuestionsRejectsMalformedJSON(t *testing.T) {
	c := newTestClient(&stubAPI{chatResp: chatReply("Sure! Here are five questions:")})

	if _, err := c.SuggestQuestions(context.Background(), "friends", "", nil); err == nil {
		t.Fatalf("expected error for non-JSON reply")
	}
}

func TestGenerateIntroSummarizesResponsesByName(t *testing.T) {
	stub := &stubAPI{chatResp: chatReply("Dear loop,")}
	c := newTestClient(stub)

	members := []services.Member{{ID: "m1", Name: "Alex"}}
	responses := []services.Response{
		{MemberID: "m1", Answer: "Ran a 10k"},
		{MemberID: "gone", Answer: "should be skipped"},
	}
	got, err := c.GenerateIntro(context.Background(), "The Sunday Social", responses, members)
	if err != nil {
		t.Fatalf("GenerateIntro: %v", err)
	}
	if got != "Dear loop," {
		t.Fatalf("intro = %q", got)
	}
	prompt := stub.chatReqs[0].Messages[0].Content
	if !strings.Contains(prompt, "Alex answered: Ran a 10k") {
		t.Fatalf("summary missing from prompt:\n%s", prompt)
	}
	if strings.Contains(prompt, "should be skipped") {
		t.Fatalf("dangling response leaked into prompt")
	}
	if stub.chatReqs[0].ResponseFormat != nil {
		t.Fatalf("intro must not use JSON mode")
	}
}

func TestGenerateNarrativeGroupsByQuestion(t *testing.T) {
	stub := &stubAPI{chatResp: chatReply("Once upon a cycle")}
	c := newTestClient(stub)

	questions := []services.Question{{ID: "q1", Text: "Highlight?"}}
	members := []services.Member{{ID: "m1", Name: "Alex"}}
	responses := []services.Response{{MemberID: "m1", QuestionID: "q1", Answer: "Ran a 10k"}}

	if _, err := c.GenerateNarrative(context.Background(), "Loop", questions, responses, members); err != nil {
		t.Fatalf("GenerateNarrative: %v", err)
	}
	prompt := stub.chatReqs[0].Messages[0].Content
	if !strings.Contains(prompt, "Prompt: Highlight?") || !strings.Contains(prompt, "- Alex said: Ran a 10k") {
		t.Fatalf("grouped transcript missing from prompt:\n%s", prompt)
	}
}

func TestGenerateHeaderImageReturnsDataURI(t *testing.T) {
	stub := &stubAPI{imageResp: openai.ImageResponse{
		Data: []openai.ImageResponseDataInner{{B64JSON: "aGVsbG8="}},
	}}
	c := newTestClient(stub)

	got, err := c.GenerateHeaderImage(context.Background(), "Newsletter about Book Club")
	if err != nil {
		t.Fatalf("GenerateHeaderImage: %v", err)
	}
	if got != "data:image/png;base64,aGVsbG8=" {
		t.Fatalf("image = %q", got)
	}
	req := stub.imageReqs[0]
	if req.Size != openai.CreateImageSize1792x1024 || req.ResponseFormat != openai.CreateImageResponseFormatB64JSON {
		t.Fatalf("image request = %+v", req)
	}
	if !strings.Contains(req.Prompt, "Newsletter about Book Club") {
		t.Fatalf("theme missing from image prompt: %q", req.Prompt)
	}
}

func TestGenerateHeaderImageEmptyData(t *testing.T) {
	c := newTestClient(&stubAPI{imageResp: openai.ImageResponse{}})

	if _, err := c.GenerateHeaderImage(context.Background(), "theme"); err == nil {
		t.Fatalf("expected error when no image data returned")
	}
}

func TestErrorsPropagateUntouched(t *testing.T) {
	wantChat := errors.New("rate limited")
	wantImage := errors.New("safety rejection")
	c := newTestClient(&stubAPI{chatErr: wantChat, imageErr: wantImage})

	if _, err := c.GenerateIntro(context.Background(), "x", nil, nil); !errors.Is(err, wantChat) {
		t.Fatalf("intro error = %v", err)
	}
	if _, err := c.GenerateHeaderImage(context.Background(), "x"); !errors.Is(err, wantImage) {
		t.Fatalf("image error = %v", err)
	}
}
