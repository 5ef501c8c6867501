package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

var (
	dayNames   = [...]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}
	monthNames = [...]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"}
)

// TicketData fills the ticket confirmation email.
type TicketData struct {
	AttendeeName string
	EventTitle   string
	EventDate    time.Time
	EventTime    *string
	Location     *string
	TicketCode   string
	TicketURL    string
	Waitlisted   bool
}

// FormatDate renders a date the way Indonesian readers expect, e.g. "Sabtu, 1 Maret 2025".
func FormatDate(d time.Time) string {
	return fmt.Sprintf("%s, %d %s %d", dayNames[d.Weekday()], d.Day(), monthNames[d.Month()-1], d.Year())
}

// FormatTime trims seconds from HH:MM[:SS] and appends the zone.
func FormatTime(t *string) string {
	if t == nil || *t == "" {
		return ""
	}
	parts := strings.SplitN(*t, ":", 3)
	if len(parts) < 2 {
		return *t + " WIB"
	}
	return parts[0] + ":" + parts[1] + " WIB"
}

var ticketTemplate = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background-color:#f4f4f5;">
  <div style="max-width:600px;margin:0 auto;padding:40px 20px;">
    <div style="text-align:center;margin-bottom:32px;">
      <h1 style="color:#0d9488;font-size:28px;margin:0;">Tixora</h1>
    </div>
    <div style="background:white;border-radius:16px;overflow:hidden;">
      <div style="background:#0d9488;padding:24px;text-align:center;">
        <h2 style="color:white;margin:0;font-size:20px;">{{if .Waitlisted}}Kamu Masuk Daftar Tunggu{{else}}Pendaftaran Berhasil!{{end}}</h2>
      </div>
      <div style="padding:32px;">
        <p style="color:#3f3f46;margin:0 0 24px;">
          Hai <strong>{{.AttendeeName}}</strong>,<br><br>
          {{if .Waitlisted}}Kuota event sudah penuh. Panitia akan menghubungi kamu jika ada tempat.{{else}}Kamu sudah terdaftar untuk event berikut:{{end}}
        </p>
        <div style="background:#f4f4f5;border-radius:12px;padding:20px;margin-bottom:24px;">
          <h3 style="color:#18181b;margin:0 0 12px;font-size:18px;">{{.EventTitle}}</h3>
          <p style="color:#71717a;margin:0;font-size:14px;line-height:1.6;">
            {{.Date}}{{with .Time}} &bull; {{.}}{{end}}<br>
            {{with .Location}}{{.}}{{end}}
          </p>
        </div>
        <div style="text-align:center;margin-bottom:24px;">
          <p style="color:#71717a;font-size:14px;margin:0 0 16px;">
            Kode Tiket: <strong style="color:#18181b;">{{.TicketCode}}</strong>
          </p>
          <a href="{{.TicketURL}}" style="display:inline-block;background:#0d9488;color:white;padding:14px 28px;border-radius:12px;text-decoration:none;font-weight:600;">Lihat Tiket &amp; QR Code</a>
        </div>
        <div style="border-top:1px solid #e4e4e7;padding-top:24px;">
          <p style="color:#71717a;font-size:14px;margin:0;line-height:1.6;">
            <strong style="color:#3f3f46;">Petunjuk:</strong><br>
            1. Simpan atau screenshot tiket kamu<br>
            2. Tunjukkan QR code saat check-in di lokasi event<br>
            3. Panitia akan scan QR code untuk verifikasi
          </p>
        </div>
      </div>
    </div>
    <div style="text-align:center;margin-top:32px;">
      <p style="color:#a1a1aa;font-size:12px;margin:0;">Email ini dikirim oleh Tixora.<br>Platform event registration gratis.</p>
    </div>
  </div>
</body>
</html>
`))

// TicketMessage renders the confirmation email for one registration.
func TicketMessage(to string, d TicketData) (Message, error) {
	view := struct {
		TicketData
		Date     string
		Time     string
		Location string
	}{TicketData: d, Date: FormatDate(d.EventDate), Time: FormatTime(d.EventTime)}
	if d.Location != nil {
		view.Location = *d.Location
	}
	var buf bytes.Buffer
	if err := ticketTemplate.Execute(&buf, view); err != nil {
		return Message{}, fmt.Errorf("render ticket email: %w", err)
	}
	return Message{
		To:      to,
		Subject: "Tiket Kamu untuk " + d.EventTitle,
		HTML:    buf.String(),
	}, nil
}
