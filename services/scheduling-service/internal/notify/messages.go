package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

func formatDate(d civil.Date) string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Olá!"
	}
	first, _, _ := strings.Cut(name, " ")
	return "Olá, " + first + "!"
}

func ConfirmationMessage(a model.Appointment) string {
	return fmt.Sprintf("%s Seu agendamento de %s foi confirmado para %s às %s.",
		greeting(a.ClientName), a.Service, formatDate(a.Date), a.StartTime)
}

// RecurringConfirmationMessage is the single summary sent after a weekly booking run.
func RecurringConfirmationMessage(a model.Appointment, count int, first, last civil.Date) string {
	return fmt.Sprintf("%s Seus %d agendamentos semanais de %s às %s foram confirmados, de %s a %s.",
		greeting(a.ClientName), count, a.Service, a.StartTime, formatDate(first), formatDate(last))
}

func CancellationMessage(a model.Appointment) string {
	return fmt.Sprintf("%s Seu agendamento de %s em %s às %s foi cancelado.",
		greeting(a.ClientName), a.Service, formatDate(a.Date), a.StartTime)
}

func SeriesCancellationMessage(a model.Appointment, removed int) string {
	return fmt.Sprintf("%s Foram cancelados %d agendamentos recorrentes de %s às %s, a partir de %s.",
		greeting(a.ClientName), removed, a.Service, a.StartTime, formatDate(a.Date))
}

func RescheduleMessage(a model.Appointment, newDate civil.Date, newTime civil.Clock) string {
	return fmt.Sprintf("%s Seu agendamento de %s foi remarcado de %s às %s para %s às %s.",
		greeting(a.ClientName), a.Service, formatDate(a.Date), a.StartTime, formatDate(newDate), newTime)
}

func SeriesRescheduleMessage(a model.Appointment, newDate civil.Date, newTime civil.Clock, moved int) string {
	return fmt.Sprintf("%s Seus %d agendamentos recorrentes de %s foram remarcados de %s às %s para %s às %s, mantendo o intervalo entre as datas.",
		greeting(a.ClientName), moved, a.Service, formatDate(a.Date), a.StartTime, formatDate(newDate), newTime)
}

// ReminderMessage renders a due reminder in the business's local time.
func ReminderMessage(r model.ScheduledReminder, loc *time.Location) string {
	at := r.AppointmentTime.In(loc)
	return fmt.Sprintf("%s Lembrete: seu horário de %s é em %s às %s.",
		greeting(r.ClientName), r.ServiceName, formatDate(civil.DateOf(at)), civil.ClockOf(at))
}
