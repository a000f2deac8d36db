package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facturacr/hacienda-edi/internal/application/auth"
	"github.com/facturacr/hacienda-edi/internal/application/edi"
	"github.com/facturacr/hacienda-edi/internal/application/usecase"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CompanyUC *usecase.CompanyUseCase
	PartyUC   *usecase.PartyUseCase
	JournalUC *usecase.JournalUseCase
	TaxUC     *usecase.TaxUseCase

	DocumentUC *edi.DocumentUseCase
	SubmitUC   *edi.SubmitUseCase
	StatusUC   *edi.StatusUseCase
	ReceiverUC *edi.ReceiverUseCase
	PDFUC      *edi.PDFUseCase
	BatchUC    *edi.BatchUseCase

	AuthUC    *auth.AuthUseCase
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Companies (público el alta; el resto protegido)
	companies := api.Group("/companies")
	companyHandler := NewCompanyHandler(deps.CompanyUC)
	companies.Post("/", companyHandler.Create)
	companies.Get("/", AuthMiddleware(deps.JWTSecret), RequireRole(entity.RoleAdmin), companyHandler.List)
	companies.Get("/:id", AuthMiddleware(deps.JWTSecret), companyHandler.GetByID)
	companies.Put("/:id", AuthMiddleware(deps.JWTSecret), RequireRole(entity.RoleAdmin), companyHandler.Update)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Parties (protegido)
	parties := protected.Group("/parties")
	partyHandler := NewPartyHandler(deps.PartyUC)
	parties.Post("/", partyHandler.Create)
	parties.Get("/", partyHandler.List)
	parties.Get("/:id", partyHandler.GetByID)
	parties.Put("/:id", partyHandler.Update)
	parties.Delete("/:id", RequireRole(entity.RoleAdmin, entity.RoleContador), partyHandler.Delete)

	// Journals (protegido; solo admin crea puntos de emisión)
	journals := protected.Group("/journals")
	journalHandler := NewJournalHandler(deps.JournalUC)
	journals.Post("/", RequireRole(entity.RoleAdmin), journalHandler.Create)
	journals.Get("/", journalHandler.List)
	journals.Get("/:id", journalHandler.GetByID)

	// Taxes (protegido; el catálogo lo administra el contador)
	taxes := protected.Group("/taxes")
	taxHandler := NewTaxHandler(deps.TaxUC)
	taxes.Post("/", RequireRole(entity.RoleAdmin, entity.RoleContador), taxHandler.Create)
	taxes.Get("/", taxHandler.List)
	taxes.Delete("/:id", RequireRole(entity.RoleAdmin, entity.RoleContador), taxHandler.Deactivate)

	// Documents (protegido): ciclo de vida completo del comprobante
	documents := protected.Group("/documents")
	documentHandler := NewDocumentHandler(deps.DocumentUC, deps.SubmitUC, deps.StatusUC, deps.ReceiverUC, deps.PDFUC, deps.BatchUC)
	documents.Post("/", documentHandler.Create)
	documents.Get("/", documentHandler.List)
	documents.Post("/import", documentHandler.Import)
	documents.Post("/batch", RequireRole(entity.RoleAdmin, entity.RoleContador), documentHandler.RunBatch)
	documents.Get("/:id", documentHandler.GetByID)
	documents.Post("/:id/submit", documentHandler.Submit)
	documents.Post("/:id/status", documentHandler.Status)
	documents.Post("/:id/receiver-message", RequireRole(entity.RoleAdmin, entity.RoleContador), documentHandler.ReceiverMessage)
	documents.Post("/:id/xml", documentHandler.AttachXML)
	documents.Get("/:id/xml", documentHandler.DownloadXML)
	documents.Get("/:id/respuesta", documentHandler.DownloadResponse)
	documents.Get("/:id/pdf", documentHandler.DownloadPDF)
}
