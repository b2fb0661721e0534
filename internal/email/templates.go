package email

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/ignatzorin/atelier-backend/internal/service"
)

// Текстовые шаблоны писем. Тело каждого письма рендерится из
// service.NotificationPayload; сервисы о шаблонах ничего не знают.
var templates = map[service.NotificationKind]*template.Template{
	service.NotificationAppointmentConfirmation: template.Must(template.New("confirmation").Parse(
		`Здравствуйте, {{.Name}}!

Мы получили вашу заявку на визит в ателье.

Время визита: {{.Time}}
{{if .Notes}}Комментарий: {{.Notes}}
{{end}}
Мы свяжемся с вами после обработки заявки.

С уважением,
ателье`)),

	service.NotificationAppointmentReminder: template.Must(template.New("reminder").Parse(
		`Здравствуйте, {{.Name}}!

Напоминаем о вашем визите в ателье: {{.Time}}.

Если планы изменились, пожалуйста, предупредите нас заранее.

С уважением,
ателье`)),

	service.NotificationAppointmentStatusChange: template.Must(template.New("status_change").Parse(
		`Здравствуйте, {{.Name}}!

Статус вашей заявки на {{.Time}} изменился: {{.StatusName}}.

С уважением,
ателье`)),

	service.NotificationVerificationCode: template.Must(template.New("verification_code").Parse(
		`Ваш код подтверждения: {{.Code}}

Код действителен {{.ExpiresInMin}} минут. Никому его не сообщайте.
Если вы не запрашивали код, просто проигнорируйте это письмо.`)),
}

var subjects = map[service.NotificationKind]string{
	service.NotificationAppointmentConfirmation: "Заявка принята",
	service.NotificationAppointmentReminder:     "Напоминание о визите",
	service.NotificationAppointmentStatusChange: "Статус заявки изменился",
	service.NotificationVerificationCode:        "Код подтверждения",
}

// render возвращает тему и тело письма для уведомления.
func render(n service.Notification) (subject, body string, err error) {
	tmpl, ok := templates[n.Kind]
	if !ok {
		return "", "", fmt.Errorf("неизвестный вид уведомления %q", n.Kind)
	}

	data := struct {
		Name         string
		Time         string
		Notes        string
		StatusName   string
		Code         string
		ExpiresInMin int
	}{
		Name:         n.Payload.Name,
		Time:         formatTime(n.Payload.AppointmentTime),
		Notes:        n.Payload.Notes,
		StatusName:   n.Payload.StatusName,
		Code:         n.Payload.Code,
		ExpiresInMin: n.Payload.ExpiresInMin,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return subjects[n.Kind], buf.String(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006 15:04")
}
