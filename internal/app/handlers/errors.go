package handlers

import (
	"errors"
	"net/http"

	"enact/internal/app/attestation"
	"enact/internal/app/capability"
	"enact/internal/app/conditions"
	"enact/internal/app/gating"
	"enact/internal/app/network"
	"enact/internal/app/params"
	reasoncodes "enact/pkg/reason_codes"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	target error
	status int
	reason reasoncodes.ReasonCode
}

var errorMappings = []errorMapping{
	{attestation.ErrNotFound, http.StatusNotFound, reasoncodes.ErrNotFound},
	{attestation.ErrMalformedSchema, http.StatusBadRequest, reasoncodes.ErrMalformedSchema},
	{attestation.ErrInvalidValue, http.StatusBadRequest, reasoncodes.ErrInvalidValue},
	{attestation.ErrAlreadyExists, http.StatusConflict, reasoncodes.ErrAlreadyExists},
	{attestation.ErrRevoked, http.StatusGone, reasoncodes.ErrRevoked},
	{attestation.ErrNotRevocable, http.StatusConflict, reasoncodes.ErrNotRevocable},
	{conditions.ErrUnknownPredicate, http.StatusBadRequest, reasoncodes.ErrUnknownPredicate},
	{conditions.ErrMalformedCondition, http.StatusBadRequest, reasoncodes.ErrMalformedCondition},
	{conditions.ErrInvalidCombinator, http.StatusBadRequest, reasoncodes.ErrMalformedCondition},
	{conditions.ErrOutOfOrder, http.StatusBadRequest, reasoncodes.ErrMalformedCondition},
	{conditions.ErrEmptyExpression, http.StatusBadRequest, reasoncodes.ErrMalformedCondition},
	{conditions.ErrScriptExhausted, http.StatusBadRequest, reasoncodes.ErrMalformedCondition},
	{gating.ErrProofRequired, http.StatusPreconditionRequired, reasoncodes.ErrProofRequired},
	{params.ErrIncompleteBundle, http.StatusBadRequest, reasoncodes.ErrProofRejected},
	{params.ErrUnsupportedParameter, http.StatusBadRequest, reasoncodes.ErrProofRejected},
	{network.ErrConditionsUnsatisfied, http.StatusForbidden, reasoncodes.ErrUnsatisfied},
	{network.ErrUnresolvedPlaceholder, http.StatusForbidden, reasoncodes.ErrUnsatisfied},
	{network.ErrConditionMismatch, http.StatusForbidden, reasoncodes.ErrUnsatisfied},
	{network.ErrUnsupportedPredicate, http.StatusForbidden, reasoncodes.ErrUnsatisfied},
	{network.ErrNotComparable, http.StatusForbidden, reasoncodes.ErrUnsatisfied},
	{network.ErrKeyNotFound, http.StatusNotFound, reasoncodes.ErrNotFound},
	{network.ErrNetworkFailure, http.StatusBadGateway, reasoncodes.ErrNetworkFailure},
	{network.ErrUnknownChain, http.StatusBadGateway, reasoncodes.ErrNetworkFailure},
	{capability.ErrUnknownCapability, http.StatusNotFound, reasoncodes.ErrNotFound},
}

func classify(err error) (int, reasoncodes.ReasonCode) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.reason
		}
	}
	return http.StatusInternalServerError, reasoncodes.ErrInternal
}

func abortWithError(c *gin.Context, err error) {
	status, reason := classify(err)
	c.JSON(status, gin.H{"error": err.Error(), "reason_code": reason})
}
