package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/hray3182/remindbot/internal/logging"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/reminder"
)

// LLMConfig configures the chat-completion translator.
type LLMConfig struct {
	BaseURL    string
	Model      string
	Credential Credential
	HTTPClient *http.Client
	Location   *time.Location
}

// LLM asks an OpenAI-compatible chat endpoint to rewrite free text as
// shorthand.
type LLM struct {
	client *openai.Client
	cred   Credential
	model  string
	local  *Local
	loc    *time.Location
	now    func() time.Time
	log    zerolog.Logger
}

func NewLLM(cfg LLMConfig, local *Local, log zerolog.Logger) *LLM {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	config := openai.DefaultConfig("")
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &bearer{cred: cfg.Credential, next: cfg.HTTPClient}

	return &LLM{
		client: openai.NewClientWithConfig(config),
		cred:   cfg.Credential,
		model:  cfg.Model,
		local:  local,
		loc:    cfg.Location,
		now:    time.Now,
		log:    logging.Component(log, "translate"),
	}
}

// Translate returns shorthand for text. A rejected token is refreshed and the
// call retried once. A reply without text is rejected; one without time or
// countInDays is completed from the local parser.
func (l *LLM) Translate(ctx context.Context, text string) (string, error) {
	content, err := l.complete(ctx, text)
	if isUnauthorized(err) {
		l.log.Info().Msg("token rejected, refreshing")
		l.cred.Invalidate()
		content, err = l.complete(ctx, text)
	}
	if err != nil {
		return "", fmt.Errorf("failed to call AI API: %w", err)
	}

	content = strings.Trim(strings.TrimSpace(content), "`\"")
	fields := reminder.ParseShorthand(content)
	if fields[reminder.KeyText] == "" {
		return "", fmt.Errorf("unexpected AI reply: %q", content)
	}

	if fields[reminder.KeyTime] == "" || fields[reminder.KeyCountInDays] == "" {
		local := l.local.Fields(text)
		for _, key := range []string{reminder.KeyTime, reminder.KeyCountInDays, reminder.KeyDays} {
			if fields[key] == "" && local[key] != "" {
				fields[key] = local[key]
			}
		}
		l.log.Debug().Str("reply", content).Str("repaired", fields.Encode()).Msg("completed AI reply locally")
	}
	return fields.Encode(), nil
}

func (l *LLM) complete(ctx context.Context, text string) (string, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(l.now().In(l.loc)),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from AI")
	}
	return resp.Choices[0].Message.Content, nil
}

func isUnauthorized(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusUnauthorized
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusUnauthorized
	}
	return false
}

// bearer sets the Authorization header from the credential on every request.
type bearer struct {
	cred Credential
	next *http.Client
}

func (b *bearer) Do(req *http.Request) (*http.Response, error) {
	token, err := b.cred.Token(req.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return b.next.Do(req)
}

const systemPromptTemplate = `Ты ассистент для приложения напоминаний. Преобразуй запрос пользователя в строго заданный формат.

ТЕКУЩЕЕ ВРЕМЯ: %[1]s (%[2]s)

ОБЯЗАТЕЛЬНЫЙ ФОРМАТ ОТВЕТА:
text=Текст напоминания&time=ЧЧ:ММ&countInDays=1

ПРАВИЛА:
1. text: краткий текст напоминания (3-4 слова)
2. time: время в 24-часовом формате ЧЧ:ММ, несколько значений через запятую
   - "в 13" это "13:00"
   - "утром" это "09:00", "днем" это "13:00", "вечером" это "19:00"
3. countInDays: по умолчанию 1, для "каждый день/ежедневно/постоянно" 99999
4. days: только если явно упомянуты дни недели: пн, вт, ср, чт, пт, сб, вс
5. everyWeek: 1 для "раз в 2 недели" или "через неделю", иначе не указывай

Относительное время считай от текущего момента:
- "через 5 минут" это %[3]s
- "через 30 минут" это %[4]s
- "через 2 часа" это %[5]s

ПРИМЕРЫ:
Запрос: "Напомни позвонить маме завтра в 18:00"
Ответ: text=Позвонить маме&time=18:00&countInDays=1&days=%[6]s
Запрос: "Напоминай каждый вторник пить глютамин в 12"
Ответ: text=Пить глютамин&time=12:00&countInDays=99999&days=вт
Запрос: "Каждый понедельник и пятницу в 9:00 напоминай про планерку"
Ответ: text=Планерка&time=09:00&countInDays=99999&days=пн,пт
Запрос: "выпить таблетки каждый день в 10 утра и в 5 вечера"
Ответ: text=Выпить таблетки&time=10:00,17:00&countInDays=99999
Запрос: "раз в 2 недели напоминай про митинг в 14:00 каждый вторник"
Ответ: text=Митинг&time=14:00&countInDays=99999&days=вт&everyWeek=1

Дай ответ только в указанном формате, без пояснений.`

func systemPrompt(now time.Time) string {
	clock := func(d time.Duration) string { return now.Add(d).Format("15:04") }
	tomorrow := now.AddDate(0, 0, 1)
	return fmt.Sprintf(systemPromptTemplate,
		now.Format("15:04"),
		weekdayNames[now.Weekday()],
		clock(5*time.Minute),
		clock(30*time.Minute),
		clock(2*time.Hour),
		models.WeekdayOf(tomorrow.Weekday()),
	)
}

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "понедельник",
	time.Tuesday:   "вторник",
	time.Wednesday: "среда",
	time.Thursday:  "четверг",
	time.Friday:    "пятница",
	time.Saturday:  "суббота",
	time.Sunday:    "воскресенье",
}
