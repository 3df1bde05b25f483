package notify

import (
	"context"
	stderrors "errors"
	"testing"

	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

type mockPublisher struct {
	name, key string
	vars      map[string]interface{}
	err       error
}

func (m *mockPublisher) PublishMessage(ctx context.Context, name, correlationKey string, variables map[string]interface{}) error {
	m.name, m.key, m.vars = name, correlationKey, variables
	return m.err
}

func createTestConfig() Config {
	return Config{
		SNSEnabled: true,
		TopicARN:   "arn:aws:sns:me-central-1:123456789012:decisions",
		SESEnabled: true,
		FromEmail:  "noreply@social.gov.ae",
	}
}

func createTestDecision() models.Decision {
	return models.Decision{
		EvaluationID: "eval-1",
		ApplicantID:  "784-1",
		Track:        models.TrackSupport,
		Outcome:      models.OutcomeApprovedWithConditions,
		Reason:       "Moderate debt-to-income ratio",
		DecidedAt:    "2026-10-19T08:00:00Z",
	}
}

func TestNotify_AllChannels(t *testing.T) {
	var published *sns.PublishInput
	var mailed *ses.SendEmailInput

	snsMock := &MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
		published = params
		return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
	}}
	sesMock := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		mailed = params
		return &ses.SendEmailOutput{MessageId: aws.String("e-1")}, nil
	}}
	zeebe := &mockPublisher{}

	n := NewNotifier(createTestConfig(), sesMock, snsMock, zeebe, logger.NewTestLogger(t))
	require.NoError(t, n.Notify(context.Background(), createTestDecision(), "applicant@example.com"))

	require.NotNil(t, published)
	assert.Contains(t, *published.Message, `"label":"Approved with Conditions"`)
	assert.Equal(t, "ApprovedWithConditions", *published.MessageAttributes["outcome"].StringValue)

	require.NotNil(t, mailed)
	assert.Equal(t, []string{"applicant@example.com"}, mailed.Destination.ToAddresses)
	assert.Equal(t, "Application eval-1: Approved with Conditions.\nReason: Moderate debt-to-income ratio", *mailed.Message.Body.Text.Data)

	assert.Equal(t, "application-evaluated", zeebe.name)
	assert.Equal(t, "784-1", zeebe.key)
	assert.Equal(t, "eval-1", zeebe.vars["evaluationId"])
}

func TestNotify_SkipsMailWithoutAddress(t *testing.T) {
	sesMock := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		t.Fatal("no mail expected")
		return nil, nil
	}}

	n := NewNotifier(createTestConfig(), sesMock, nil, nil, logger.NewTestLogger(t))
	assert.NoError(t, n.Notify(context.Background(), createTestDecision(), ""))
}

func TestNotify_JoinsChannelErrors(t *testing.T) {
	snsMock := &MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
		return nil, stderrors.New("throttled")
	}}
	zeebe := &mockPublisher{err: stderrors.New("unavailable")}

	n := NewNotifier(createTestConfig(), nil, snsMock, zeebe, logger.NewTestLogger(t))
	err := n.Notify(context.Background(), createTestDecision(), "applicant@example.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotificationSendFailed)
	assert.Contains(t, err.Error(), "sns: throttled")
	assert.Contains(t, err.Error(), "zeebe: unavailable")
}

func TestRenderTemplate(t *testing.T) {
	out := renderTemplate("Hi {{name}}, {{missing}}done", map[string]string{"name": "Aisha"})
	assert.Equal(t, "Hi Aisha, done", out)
}

func TestRenderEmailEnablement(t *testing.T) {
	d := models.Decision{EvaluationID: "e-2", Track: models.TrackEnablement, Outcome: models.OutcomeAdvisory, Narrative: "Take the cloud course."}
	subject, body := renderEmail(d)
	assert.Equal(t, "Your career enablement plan", subject)
	assert.Contains(t, body, "Take the cloud course.")
}
