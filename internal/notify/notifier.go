// internal/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

var ErrNotificationSendFailed = stderrors.New("NOTIFICATION_SEND_FAILED")

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// MessagePublisher correlates a message with a waiting process instance.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, variables map[string]interface{}) error
}

type Config struct {
	SNSEnabled  bool
	TopicARN    string
	SESEnabled  bool
	FromEmail   string
	MessageName string
}

// Notifier announces final decisions. Channels without a client or switched
// off in Config are skipped.
type Notifier struct {
	cfg       Config
	sesClient SESService
	snsClient SNSService
	zeebe     MessagePublisher
	logger    logger.Logger
}

func NewNotifier(cfg Config, sesClient SESService, snsClient SNSService, zeebe MessagePublisher, log logger.Logger) *Notifier {
	if cfg.MessageName == "" {
		cfg.MessageName = "application-evaluated"
	}
	return &Notifier{
		cfg:       cfg,
		sesClient: sesClient,
		snsClient: snsClient,
		zeebe:     zeebe,
		logger:    log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// Notify sends d on every enabled channel. email may be empty, in which case
// no mail is sent. All channel failures are joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, d models.Decision, email string) error {
	event := models.NewDecisionEvent(d)
	var errs []error

	if n.cfg.SNSEnabled && n.snsClient != nil && n.cfg.TopicARN != "" {
		if err := n.publishEvent(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%w: sns: %v", ErrNotificationSendFailed, err))
		}
	}

	if n.cfg.SESEnabled && n.sesClient != nil && email != "" {
		if err := n.sendEmail(ctx, email, d); err != nil {
			errs = append(errs, fmt.Errorf("%w: ses: %v", ErrNotificationSendFailed, err))
		}
	}

	if n.zeebe != nil {
		if err := n.zeebe.PublishMessage(ctx, n.cfg.MessageName, event.EmiratesID, eventVariables(event)); err != nil {
			errs = append(errs, fmt.Errorf("%w: zeebe: %v", ErrNotificationSendFailed, err))
		}
	}

	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}
	n.logger.Debug("decision announced", map[string]interface{}{"evaluationId": d.EvaluationID})
	return nil
}

func (n *Notifier) publishEvent(ctx context.Context, event models.DecisionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = n.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.cfg.TopicARN),
		Subject:  aws.String("Application evaluated"),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"track":   {DataType: aws.String("String"), StringValue: aws.String(event.Track)},
			"outcome": {DataType: aws.String("String"), StringValue: aws.String(event.Outcome)},
		},
	})
	return err
}

func (n *Notifier) sendEmail(ctx context.Context, to string, d models.Decision) error {
	subject, body := renderEmail(d)
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.FromEmail),
	})
	return err
}

var emailTemplates = map[models.Track]struct{ subject, body string }{
	models.TrackSupport: {
		subject: "Your financial support application",
		body:    "Application {{evaluationId}}: {{label}}.\nReason: {{reason}}",
	},
	models.TrackEnablement: {
		subject: "Your career enablement plan",
		body:    "Application {{evaluationId}}\n\n{{narrative}}",
	},
}

func renderEmail(d models.Decision) (string, string) {
	tmpl, ok := emailTemplates[d.Track]
	if !ok {
		tmpl = emailTemplates[models.TrackSupport]
	}
	data := map[string]string{
		"evaluationId": d.EvaluationID,
		"label":        d.Outcome.Label(),
		"reason":       d.Reason,
		"narrative":    d.Narrative,
	}
	return renderTemplate(tmpl.subject, data), renderTemplate(tmpl.body, data)
}

// renderTemplate fills {{key}} placeholders and drops unknown ones.
func renderTemplate(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}

func eventVariables(event models.DecisionEvent) map[string]interface{} {
	return map[string]interface{}{
		"evaluationId": event.EvaluationID,
		"emiratesId":   event.EmiratesID,
		"track":        event.Track,
		"outcome":      event.Outcome,
		"label":        event.Label,
		"reason":       event.Reason,
		"decidedAt":    event.DecidedAt,
	}
}
