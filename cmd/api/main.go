package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/facturacr/hacienda-edi/docs"
	"github.com/facturacr/hacienda-edi/internal/application/auth"
	"github.com/facturacr/hacienda-edi/internal/application/edi"
	"github.com/facturacr/hacienda-edi/internal/application/usecase"
	dhacienda "github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	infra "github.com/facturacr/hacienda-edi/internal/infrastructure/hacienda"
	"github.com/facturacr/hacienda-edi/internal/infrastructure/hacienda/signer"
	"github.com/facturacr/hacienda-edi/internal/infrastructure/mail"
	infrapdf "github.com/facturacr/hacienda-edi/internal/infrastructure/pdf"
	"github.com/facturacr/hacienda-edi/internal/infrastructure/postgres"
	httpRouter "github.com/facturacr/hacienda-edi/internal/interfaces/http"
	"github.com/facturacr/hacienda-edi/pkg/config"
	"github.com/facturacr/hacienda-edi/pkg/logger"
)

// batchInterval cadencia del proceso de fondo que presenta los Mensajes
// Receptores pendientes y consulta los comprobantes en trámite.
const batchInterval = 10 * time.Minute

// @title        Hacienda EDI API
// @version      1.0
// @description  Emisión, recepción y seguimiento de comprobantes electrónicos ante el Ministerio de Hacienda de Costa Rica (v4.3).
// @BasePath     /
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("hacienda", cfg.Hacienda.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	partyRepo := postgres.NewPartyRepository(pool)
	journalRepo := postgres.NewJournalRepository(pool)
	seqRepo := postgres.NewSequenceRepository(pool)
	taxRepo := postgres.NewTaxRepository(pool)
	docRepo := postgres.NewDocumentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Certificado ATV para la firma XAdES-EPES. En desarrollo puede no haber
	// certificado: la emisión fallará al firmar, el resto del API funciona.
	var cert tls.Certificate
	if cfg.Hacienda.CertPath != "" {
		cert, err = signer.LoadFromP12(cfg.Hacienda.CertPath, cfg.Hacienda.CertPIN)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Hacienda.CertPath).Msg("cargar certificado .p12")
		}
	} else {
		log.Warn().Msg("HACIENDA_CERT_PATH vacío: la firma de comprobantes no estará disponible")
	}

	sequences := dhacienda.NewSequenceService()
	xmlBuilder := infra.NewXMLBuilderService()
	xmlParser := infra.NewXMLParserService()
	signerSvc := signer.NewDigitalSignatureService()
	apiClient := infra.NewRESTClient(cfg.Hacienda)

	// Notificador SMTP; sin servidor configurado los avisos solo se loggean.
	notifier := mail.NewSMTPNotifier(cfg.Mail, cfg.EDI.NotificationEmail, log)

	documentUC := edi.NewDocumentUseCase(docRepo, partyRepo, journalRepo, taxRepo, log)
	submitUC := edi.NewSubmitUseCase(
		docRepo, companyRepo, partyRepo, journalRepo, seqRepo,
		sequences, xmlBuilder, signerSvc, cert, apiClient, log,
	)
	statusUC := edi.NewStatusUseCase(docRepo, apiClient, xmlParser, notifier, log)
	receiverUC := edi.NewReceiverUseCase(
		docRepo, companyRepo, partyRepo, taxRepo, seqRepo, txRunner,
		sequences, xmlBuilder, xmlParser, signerSvc, cert, apiClient, cfg.EDI, log,
	)
	batchUC := edi.NewBatchUseCase(docRepo, statusUC, receiverUC, cfg.EDI.MaxDocuments, log)

	pdfGenerator := infrapdf.NewMarotoPDFGenerator()
	pdfUC := edi.NewPDFUseCase(docRepo, companyRepo, partyRepo, pdfGenerator)

	companyUC := usecase.NewCompanyUseCase(companyRepo)
	partyUC := usecase.NewPartyUseCase(partyRepo)
	journalUC := usecase.NewJournalUseCase(journalRepo)
	taxUC := usecase.NewTaxUseCase(taxRepo)

	authUC := auth.NewAuthUseCase(userRepo, companyRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    4 * 1024 * 1024, // XMLs firmados y adjuntos base64
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Hacienda EDI API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CompanyUC:  companyUC,
		PartyUC:    partyUC,
		JournalUC:  journalUC,
		TaxUC:      taxUC,
		DocumentUC: documentUC,
		SubmitUC:   submitUC,
		StatusUC:   statusUC,
		ReceiverUC: receiverUC,
		PDFUC:      pdfUC,
		BatchUC:    batchUC,
		AuthUC:     authUC,
		JWTSecret:  cfg.JWT.Secret,
	})

	// Scheduler de fondo: la misma tanda que expone POST /api/documents/batch,
	// corrida periódicamente para todas las empresas.
	schedCtx, stopSched := context.WithCancel(ctx)
	go runBatchScheduler(schedCtx, companyRepo, batchUC, log)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopSched()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// runBatchScheduler ejecuta la tanda de comprobantes para cada empresa
// registrada, cada batchInterval, hasta que el contexto se cancele.
func runBatchScheduler(ctx context.Context, companies *postgres.CompanyRepo, batchUC *edi.BatchUseCase, log *logger.Logger) {
	ticker := time.NewTicker(batchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		list, err := companies.List(ctx, 100, 0)
		if err != nil {
			log.Error().Err(err).Msg("scheduler: listar empresas")
			continue
		}
		for _, company := range list {
			result, err := batchUC.Run(ctx, company.ID)
			if err != nil {
				log.Error().Err(err).Str("company_id", company.ID).Msg("scheduler: tanda fallida")
				continue
			}
			if result.Sent > 0 || result.Queried > 0 || result.Failed > 0 {
				log.Info().
					Str("company_id", company.ID).
					Int("enviados", result.Sent).
					Int("consultados", result.Queried).
					Int("fallidos", result.Failed).
					Msg("scheduler: tanda completada")
			}
		}
	}
}
