package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Aerovity/riglii-backend/internal/models"
	"github.com/Aerovity/riglii-backend/internal/services/lifecycle"
	"github.com/Aerovity/riglii-backend/internal/storage"
)

const maxDeliveryFileSize = 25 * 1024 * 1024

type FormHandler struct {
	Service *lifecycle.Service
	Store   *storage.Storage
}

func NewFormHandler(svc *lifecycle.Service, store *storage.Storage) *FormHandler {
	return &FormHandler{Service: svc, Store: store}
}

type projectFileOut struct {
	models.ProjectFile
	URL string `json:"url"`
}

// FormOut decorates a form with resolved delivery file URLs.
type FormOut struct {
	models.Form
	Files []projectFileOut `json:"files,omitempty"`
}

func (h *FormHandler) formOut(form models.Form) FormOut {
	out := FormOut{Form: form}
	for _, f := range form.Files() {
		out.Files = append(out.Files, projectFileOut{
			ProjectFile: f,
			URL:         h.Store.PublicURL(f.Path),
		})
	}
	return out
}

type createFormReq struct {
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	TimeEstimate string `json:"time_estimate"`
}

// CreateForm opens a proposal or commercial form in a conversation.
func (h *FormHandler) CreateForm(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	var req createFormReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid body",
		})
	}

	form, err := h.Service.CreateForm(convUUID, userUUID, lifecycle.CreateFormInput{
		Kind:         models.FormKind(req.Kind),
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		TimeEstimate: req.TimeEstimate,
	})
	if err != nil {
		return respondErr(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    h.formOut(*form),
	})
}

// ListForms returns every form of a conversation, newest first.
func (h *FormHandler) ListForms(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	forms, err := h.Service.ListForms(convUUID, userUUID)
	if err != nil {
		return respondErr(c, err)
	}

	out := make([]FormOut, 0, len(forms))
	for _, f := range forms {
		out = append(out, h.formOut(f))
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}

// GetForm returns one form with its closing countdown when delivered.
func (h *FormHandler) GetForm(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	formUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid form ID",
		})
	}

	form, err := h.Service.GetForm(formUUID, userUUID)
	if err != nil {
		return respondErr(c, err)
	}

	resp := fiber.Map{
		"success": true,
		"data":    h.formOut(*form),
	}
	if form.ProjectSubmitted && form.ProjectSubmittedAt != nil {
		resp["days_remaining"] = lifecycle.DaysRemaining(*form.ProjectSubmittedAt, h.Service.Now())
	}
	return c.JSON(resp)
}

type acceptFormReq struct {
	Signature string `json:"signature"`
}

// AcceptForm transitions a pending form to accepted with the client's
// signature.
func (h *FormHandler) AcceptForm(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	formUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid form ID",
		})
	}

	var req acceptFormReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid body",
		})
	}

	form, err := h.Service.AcceptForm(formUUID, userUUID, req.Signature)
	if err != nil {
		return respondErr(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": h.formOut(*form)})
}

type refuseFormReq struct {
	Reason string `json:"reason"`
}

// RefuseForm transitions a pending form to refused.
func (h *FormHandler) RefuseForm(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	formUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid form ID",
		})
	}

	var req refuseFormReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid body",
		})
	}

	form, err := h.Service.RefuseForm(formUUID, userUUID, req.Reason)
	if err != nil {
		return respondErr(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": h.formOut(*form)})
}

// SubmitDelivery stores the uploaded project files, then latches the
// delivery sub-state. Multipart: files under "files", plus optional
// "submission_url" and "notes" fields.
func (h *FormHandler) SubmitDelivery(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	formUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid form ID",
		})
	}

	submissionURL := c.FormValue("submission_url")
	notes := c.FormValue("notes")

	var files []models.ProjectFile
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		for _, fh := range mf.File["files"] {
			if fh.Size <= 0 || fh.Size > maxDeliveryFileSize {
				return c.Status(400).JSON(fiber.Map{
					"success": false,
					"message": "File " + fh.Filename + " exceeds the 25MB limit",
				})
			}

			path, serr := h.Store.SaveUpload("deliveries", fh)
			if serr != nil {
				log.Println("Error saving delivery file:", serr)
				return c.Status(502).JSON(fiber.Map{
					"success": false,
					"message": "Failed to store delivery files",
				})
			}
			files = append(files, models.ProjectFile{
				Name: fh.Filename,
				Path: path,
				Size: fh.Size,
				Mime: fh.Header.Get("Content-Type"),
			})
		}
	}

	form, err := h.Service.SubmitDelivery(formUUID, userUUID, files, submissionURL, notes)
	if err != nil {
		return respondErr(c, err)
	}

	resp := fiber.Map{
		"success": true,
		"data":    h.formOut(*form),
	}
	if form.ProjectSubmittedAt != nil {
		resp["days_remaining"] = lifecycle.DaysRemaining(*form.ProjectSubmittedAt, h.Service.Now())
	}
	return c.JSON(resp)
}

// DownloadDeliveryFile streams one delivered file to a participant.
func (h *FormHandler) DownloadDeliveryFile(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	formUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid form ID",
		})
	}

	idx, err := strconv.Atoi(c.Params("index"))
	if err != nil || idx < 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid file index",
		})
	}

	form, err := h.Service.GetForm(formUUID, userUUID)
	if err != nil {
		return respondErr(c, err)
	}

	files := form.Files()
	if idx >= len(files) {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "File not found",
		})
	}

	data, err := h.Store.Read(files[idx].Path)
	if err != nil {
		log.Println("Error reading delivery file:", err)
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "File not found",
		})
	}

	c.Set("Content-Disposition", "attachment; filename=\""+files[idx].Name+"\"")
	if files[idx].Mime != "" {
		c.Set("Content-Type", files[idx].Mime)
	}
	return c.Send(data)
}
