package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"enact/internal/app/attestation"
	"enact/internal/app/capability"
	"enact/internal/app/conditions"
	"enact/internal/app/gating"
	"enact/internal/app/proof"
	"enact/pkg/logger"
	"enact/pkg/rest"
	"enact/pkg/utilities"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const (
	apiGroup = "v1"
	qrSize   = 256
)

type Handler struct {
	registry     attestation.Registry
	gate         *gating.Orchestrator
	catalog      *conditions.Catalog
	capabilities *capability.Registry
	log          *logger.Logger
}

func NewHandler(
	registry attestation.Registry,
	gate *gating.Orchestrator,
	catalog *conditions.Catalog,
	capabilities *capability.Registry,
	log *logger.Logger,
) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{registry: registry, gate: gate, catalog: catalog, capabilities: capabilities, log: log}
}

func (h *Handler) Routes() []rest.Route {
	return []rest.Route{
		rest.NewRoute(rest.GET, apiGroup, "catalog", h.ListCatalog),
		rest.NewRoute(rest.POST, apiGroup, "schemas", h.CreateSchema),
		rest.NewRoute(rest.GET, apiGroup, "schemas/:uid", h.GetSchema),
		rest.NewRoute(rest.POST, apiGroup, "attestations", h.CreateAttestation),
		rest.NewRoute(rest.GET, apiGroup, "attestations/:uid", h.GetAttestation),
		rest.NewRoute(rest.POST, apiGroup, "attestations/:uid/resolve", h.ResolveAttestation),
		rest.NewRoute(rest.POST, apiGroup, "attestations/:uid/revoke", h.RevokeAttestation),
		rest.NewRoute(rest.GET, apiGroup, "attestations/:uid/qr", h.AttestationQR),
		rest.NewRoute(rest.POST, apiGroup, "proofs/verify", h.VerifyProof),
	}
}

type catalogEntry struct {
	Name      string               `json:"name"`
	Kind      string               `json:"kind"`
	Chain     string               `json:"chain"`
	Arity     int                  `json:"arity"`
	Predicate conditions.Predicate `json:"predicate"`
}

// ListCatalog godoc
// @Summary      List predicate templates
// @Tags         Conditions
// @Produce      json
// @Success      200  {array}  catalogEntry
// @Router       /v1/catalog [get]
func (h *Handler) ListCatalog(c *gin.Context) {
	entries := utilities.Map(h.catalog.Templates(), func(t conditions.Template) catalogEntry {
		return catalogEntry{Name: t.Name, Kind: t.Kind().String(), Chain: t.Chain(), Arity: t.Arity(), Predicate: t.Predicate}
	})
	c.JSON(http.StatusOK, entries)
}

// CreateSchema godoc
// @Summary      Register a schema
// @Description  Registers a comma separated "type name" field list
// @Tags         Schemas
// @Accept       json
// @Produce      json
// @Param        body  body      object{definition=string,resolver=string,revocable=bool}  true  "Schema"
// @Success      201  {object}  attestation.Schema
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /v1/schemas [post]
func (h *Handler) CreateSchema(c *gin.Context) {
	var req struct {
		Definition string `json:"definition"`
		Resolver   string `json:"resolver"`
		Revocable  bool   `json:"revocable"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	schema, err := h.registry.CreateSchema(c.Request.Context(), attestation.SchemaRequest{
		Definition: req.Definition,
		Resolver:   req.Resolver,
		Revocable:  req.Revocable,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, schema)
}

// GetSchema godoc
// @Summary      Get schema by UID
// @Tags         Schemas
// @Produce      json
// @Param        uid  path      string  true  "Schema UID"
// @Success      200  {object}  attestation.Schema
// @Failure      404  {object}  map[string]string
// @Router       /v1/schemas/{uid} [get]
func (h *Handler) GetSchema(c *gin.Context) {
	schema, err := h.registry.GetSchema(c.Request.Context(), c.Param("uid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

type createAttestationRequest struct {
	SchemaUid  string            `json:"schema_uid"`
	Recipient  string            `json:"recipient"`
	Data       map[string]string `json:"data"`
	Conditions json.RawMessage   `json:"conditions,omitempty"`
	Script     string            `json:"script,omitempty"`
}

// expression builds the gating expression from either a raw condition array
// or a catalog script such as "NFT Owner|or|Timelock".
func (req createAttestationRequest) expression(ctx context.Context, catalog *conditions.Catalog) (conditions.Expression, bool, error) {
	switch {
	case len(req.Conditions) > 0 && string(req.Conditions) != "null":
		expr, err := conditions.ParseExpression(req.Conditions)
		return expr, true, err
	case req.Script != "":
		expr, err := conditions.Compose(ctx, catalog, conditions.ParseScript(req.Script))
		return expr, true, err
	}
	return conditions.Expression{}, false, nil
}

// CreateAttestation godoc
// @Summary      Create an attestation
// @Description  Creates a plain attestation, or a gated one when conditions or a catalog script are given
// @Tags         Attestations
// @Accept       json
// @Produce      json
// @Param        body  body      createAttestationRequest  true  "Attestation"
// @Success      201  {object}  attestation.Attestation
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /v1/attestations [post]
func (h *Handler) CreateAttestation(c *gin.Context) {
	var req createAttestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	ctx := c.Request.Context()
	expr, gated, err := req.expression(ctx, h.catalog)
	if err != nil {
		abortWithError(c, err)
		return
	}

	var created attestation.Attestation
	if gated {
		created, err = h.gate.Create(ctx, gating.CreateRequest{
			SchemaUID:  req.SchemaUid,
			Recipient:  req.Recipient,
			Data:       req.Data,
			Conditions: expr,
		})
	} else {
		created, err = h.registry.CreateAttestation(ctx, attestation.AttestationRequest{
			SchemaUID: req.SchemaUid,
			Recipient: req.Recipient,
			Data:      req.Data,
		})
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetAttestation godoc
// @Summary      Get an attestation as stored
// @Description  Gated attestations are returned encrypted
// @Tags         Attestations
// @Produce      json
// @Param        uid  path      string  true  "Attestation UID"
// @Success      200  {object}  attestation.Attestation
// @Failure      404  {object}  map[string]string
// @Router       /v1/attestations/{uid} [get]
func (h *Handler) GetAttestation(c *gin.Context) {
	a, err := h.gate.Fetch(c.Request.Context(), c.Param("uid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// ResolveAttestation godoc
// @Summary      Resolve an attestation
// @Description  Decrypts a gated attestation through the encryption network. Send the proof bundle when the conditions need one.
// @Tags         Attestations
// @Accept       json
// @Produce      json
// @Param        uid   path      string                       true   "Attestation UID"
// @Param        body  body      object{proof=proof.ProofBundle}  false  "Proof bundle"
// @Success      200  {object}  gating.Resolved
// @Failure      403  {object}  map[string]string
// @Failure      410  {object}  map[string]string
// @Failure      428  {object}  map[string]string
// @Router       /v1/attestations/{uid}/resolve [post]
func (h *Handler) ResolveAttestation(c *gin.Context) {
	var req struct {
		Proof json.RawMessage `json:"proof"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
	}

	var source gating.ProofSource
	if len(req.Proof) > 0 && string(req.Proof) != "null" {
		bundle, err := proof.ParseBundle(req.Proof)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proof bundle: " + err.Error()})
			return
		}
		source = gating.StaticProof(bundle)
	}

	resolved, err := h.gate.Resolve(c.Request.Context(), c.Param("uid"), source)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolved)
}

// RevokeAttestation godoc
// @Summary      Revoke an attestation
// @Tags         Attestations
// @Accept       json
// @Produce      json
// @Param        uid   path      string               true  "Attestation UID"
// @Param        body  body      object{reason=string}  true  "Revocation reason"
// @Success      200  {object}  attestation.Revocation
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      410  {object}  map[string]string
// @Router       /v1/attestations/{uid}/revoke [post]
func (h *Handler) RevokeAttestation(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	revocation, err := h.gate.Revoke(c.Request.Context(), c.Param("uid"), req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, revocation)
}

// AttestationQR godoc
// @Summary      QR code of an attestation UID
// @Tags         Attestations
// @Produce      png
// @Param        uid  path  string  true  "Attestation UID"
// @Success      200
// @Failure      404  {object}  map[string]string
// @Router       /v1/attestations/{uid}/qr [get]
func (h *Handler) AttestationQR(c *gin.Context) {
	a, err := h.registry.GetAttestation(c.Request.Context(), c.Param("uid"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	png, err := qrcode.Encode(a.UID, qrcode.Medium, qrSize)
	if err != nil {
		h.log.Errorf(err, "Could not render QR code for %s", a.UID)
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// VerifyProof godoc
// @Summary      Verify a proof
// @Description  Runs a verifier capability, the AnonAadhaar verifier by default. Only pass/fail is returned.
// @Tags         Proofs
// @Accept       json
// @Produce      json
// @Param        body  body      object{capability=string,proof=object}  true  "Proof"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  map[string]string
// @Router       /v1/proofs/verify [post]
func (h *Handler) VerifyProof(c *gin.Context) {
	var req struct {
		Capability string          `json:"capability"`
		Proof      json.RawMessage `json:"proof"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.Capability == "" {
		req.Capability = conditions.AnonAadhaarCapability
	}

	valid, err := h.capabilities.VerifyProof(c.Request.Context(), req.Capability, req.Proof)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isValid": valid})
}
