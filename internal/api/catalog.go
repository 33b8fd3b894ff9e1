package api

import (
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

type inactiveQuery struct {
	IncludeInactive bool `form:"include_inactive"`
}

// Products

func (h *Handler) ListProducts(c *gin.Context) {
	var filter services.ProductFilter
	if !bindQuery(c, &filter) {
		return
	}

	products, err := h.Products.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, products)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req services.ProductInput
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.Products.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Product created successfully", product)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	product, err := h.Products.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, product)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ProductUpdate
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.Products.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, product)
}

// DeactivateProduct hides a product from the catalog; rows stay for history
func (h *Handler) DeactivateProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Products.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Product deactivated")
}

func (h *Handler) ListVariants(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	variants, err := h.Products.ListVariants(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, variants)
}

func (h *Handler) CreateVariant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.VariantInput
	if !bindJSON(c, &req) {
		return
	}

	variant, err := h.Products.CreateVariant(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Variant created successfully", variant)
}

func (h *Handler) UpdateVariant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	variantID, ok := paramID(c, "variant_id")
	if !ok {
		return
	}
	var req services.VariantUpdate
	if !bindJSON(c, &req) {
		return
	}

	variant, err := h.Products.UpdateVariant(c.Request.Context(), id, variantID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, variant)
}

func (h *Handler) DeleteVariant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	variantID, ok := paramID(c, "variant_id")
	if !ok {
		return
	}

	if err := h.Products.DeleteVariant(c.Request.Context(), id, variantID); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Variant deleted")
}

// Recurring plans

func (h *Handler) ListPlans(c *gin.Context) {
	var page services.Page
	if !bindQuery(c, &page) {
		return
	}

	plans, err := h.Plans.List(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, plans)
}

func (h *Handler) CreatePlan(c *gin.Context) {
	var req services.PlanInput
	if !bindJSON(c, &req) {
		return
	}

	plan, err := h.Plans.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Recurring plan created successfully", plan)
}

func (h *Handler) GetPlan(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	plan, err := h.Plans.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, plan)
}

func (h *Handler) UpdatePlan(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.PlanUpdate
	if !bindJSON(c, &req) {
		return
	}

	plan, err := h.Plans.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, plan)
}

func (h *Handler) DeletePlan(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Plans.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Recurring plan deleted")
}

// Taxes

func (h *Handler) ListTaxes(c *gin.Context) {
	var q inactiveQuery
	if !bindQuery(c, &q) {
		return
	}

	taxes, err := h.Taxes.List(c.Request.Context(), q.IncludeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, taxes)
}

func (h *Handler) CreateTax(c *gin.Context) {
	var req services.TaxInput
	if !bindJSON(c, &req) {
		return
	}

	tax, err := h.Taxes.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Tax created successfully", tax)
}

func (h *Handler) GetTax(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	tax, err := h.Taxes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, tax)
}

func (h *Handler) UpdateTax(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.TaxUpdate
	if !bindJSON(c, &req) {
		return
	}

	tax, err := h.Taxes.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, tax)
}

func (h *Handler) DeactivateTax(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Taxes.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Tax deactivated")
}

// Discounts

func (h *Handler) ListDiscounts(c *gin.Context) {
	var q inactiveQuery
	if !bindQuery(c, &q) {
		return
	}

	discounts, err := h.Discounts.List(c.Request.Context(), q.IncludeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, discounts)
}

func (h *Handler) CreateDiscount(c *gin.Context) {
	var req services.DiscountInput
	if !bindJSON(c, &req) {
		return
	}

	discount, err := h.Discounts.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Discount created successfully", discount)
}

func (h *Handler) GetDiscount(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	discount, err := h.Discounts.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, discount)
}

func (h *Handler) UpdateDiscount(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.DiscountUpdate
	if !bindJSON(c, &req) {
		return
	}

	discount, err := h.Discounts.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, discount)
}

func (h *Handler) DeactivateDiscount(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Discounts.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Discount deactivated")
}

// ValidateDiscountCode previews a code against a basket without using it
// POST /discounts/validate-code
func (h *Handler) ValidateDiscountCode(c *gin.Context) {
	var req services.ValidateCodeInput
	if !bindJSON(c, &req) {
		return
	}

	check, err := h.Discounts.ValidateCode(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, check)
}

// Quotation templates

func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.Templates.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, templates)
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req services.TemplateInput
	if !bindJSON(c, &req) {
		return
	}

	tmpl, err := h.Templates.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Quotation template created successfully", tmpl)
}

func (h *Handler) GetTemplate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	tmpl, err := h.Templates.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, tmpl)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.TemplateUpdate
	if !bindJSON(c, &req) {
		return
	}

	tmpl, err := h.Templates.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, tmpl)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Templates.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Quotation template deleted")
}
