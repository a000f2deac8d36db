// Package mail envía los avisos por correo del ciclo de comprobantes:
// rechazos de Hacienda y errores de entrega que requieren intervención.
package mail

import (
	"context"
	"fmt"
	"io"

	gomail "gopkg.in/gomail.v2"

	"github.com/facturacr/hacienda-edi/internal/application/edi"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/pkg/config"
	"github.com/facturacr/hacienda-edi/pkg/logger"
)

var _ edi.Notifier = (*SMTPNotifier)(nil)

// SMTPNotifier implementa edi.Notifier sobre un servidor SMTP con gomail.
type SMTPNotifier struct {
	cfg config.MailConfig
	to  string
	log *logger.Logger
}

// NewSMTPNotifier construye el notificador. to es el buzón que recibe los
// avisos (EDI_NOTIFICATION_EMAIL).
func NewSMTPNotifier(cfg config.MailConfig, to string, log *logger.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, to: to, log: log}
}

// NotifyRejection avisa que Hacienda rechazó un comprobante. El XML de
// respuesta viaja adjunto cuando existe, para que contabilidad pueda
// revisar el detalle completo.
func (n *SMTPNotifier) NotifyRejection(_ context.Context, doc *entity.Document, reason string) error {
	if !n.cfg.Enabled() || n.to == "" {
		n.log.Debug().Str("clave", doc.Clave).Msg("SMTP sin configurar, aviso de rechazo omitido")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", fmt.Sprintf("Comprobante rechazado por Hacienda: %s", doc.FullSequence))

	body := fmt.Sprintf(
		"Hacienda rechazó el comprobante %s.\n\nClave: %s\nMotivo: %s\n",
		doc.FullSequence, doc.Clave, nonEmpty(reason, "sin detalle en la respuesta"),
	)
	m.SetBody("text/plain", body)

	if len(doc.ResponseXML) > 0 && doc.ResponseFilename != "" {
		m.Attach(doc.ResponseFilename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(doc.ResponseXML)
			return err
		}))
	}

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("enviar aviso de rechazo de %s: %w", doc.Clave, err)
	}

	n.log.Info().Str("clave", doc.Clave).Str("para", n.to).Msg("aviso de rechazo enviado")
	return nil
}

// NotifyAcceptance avisa que Hacienda aceptó un comprobante, adjuntando el
// XML firmado y la respuesta para el archivo contable.
func (n *SMTPNotifier) NotifyAcceptance(_ context.Context, doc *entity.Document) error {
	if !n.cfg.Enabled() || n.to == "" {
		n.log.Debug().Str("clave", doc.Clave).Msg("SMTP sin configurar, aviso de aceptación omitido")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", fmt.Sprintf("Comprobante aceptado por Hacienda: %s", doc.FullSequence))
	m.SetBody("text/plain", fmt.Sprintf(
		"Hacienda aceptó el comprobante %s.\n\nClave: %s\n", doc.FullSequence, doc.Clave,
	))

	attach := func(name string, data []byte) {
		if len(data) == 0 || name == "" {
			return
		}
		m.Attach(name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	attach(doc.XMLFilename, doc.XMLDocument)
	attach(doc.ResponseFilename, doc.ResponseXML)

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("enviar aviso de aceptación de %s: %w", doc.Clave, err)
	}

	n.log.Info().Str("clave", doc.Clave).Str("para", n.to).Msg("aviso de aceptación enviado")
	return nil
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
