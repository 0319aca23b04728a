// Package errors provides structured error handling for the tabletop core.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Character errors
	CodeCharacterEmptyName    Code = "CHARACTER_EMPTY_NAME"
	CodeCharacterEmptyOwner   Code = "CHARACTER_EMPTY_OWNER"
	CodeCharacterNegativeFate Code = "CHARACTER_NEGATIVE_FATE"
	CodeCharacterArchived     Code = "CHARACTER_ARCHIVED"

	// Skill pyramid errors
	CodePyramidLevelOverflow Code = "PYRAMID_LEVEL_OVERFLOW"
	CodePyramidLevelRange    Code = "PYRAMID_LEVEL_RANGE"
	CodePyramidIncomplete    Code = "PYRAMID_INCOMPLETE"

	// Scene errors
	CodeSceneEmptyName         Code = "SCENE_EMPTY_NAME"
	CodeSceneTooFewAspects     Code = "SCENE_TOO_FEW_ASPECTS"
	CodeSceneIsActive          Code = "SCENE_IS_ACTIVE"
	CodeSceneArchived          Code = "SCENE_ARCHIVED"
	CodeSceneInvalidTransition Code = "SCENE_INVALID_TRANSITION"
	CodeSceneNoneActive        Code = "SCENE_NONE_ACTIVE"

	// NPC errors
	CodeNPCInvalidKind Code = "NPC_INVALID_KIND"
	CodeNPCEmptyName   Code = "NPC_EMPTY_NAME"

	// Seat/role errors
	CodeGMSeatTaken    Code = "GM_SEAT_TAKEN"
	CodeCharacterTaken Code = "CHARACTER_SEAT_TAKEN"
	CodeSeatEmptyUser  Code = "SEAT_EMPTY_USER"

	// Aspect/invoke errors
	CodeAspectEmptyName    Code = "ASPECT_EMPTY_NAME"
	CodeBoostTargetUnknown Code = "BOOST_TARGET_UNKNOWN"
	CodeInvokeNoPool       Code = "INVOKE_NO_POOL"

	// Dice errors
	CodeDiceInvalidMode  Code = "DICE_INVALID_MODE"
	CodeDiceInvalidFace  Code = "DICE_INVALID_FACE"
	CodeDiceInvalidCount Code = "DICE_INVALID_FACE_COUNT"

	// Gateway errors
	CodeClientMessageMalformed   Code = "CLIENT_MESSAGE_MALFORMED"
	CodeClientMessageUnknownType Code = "CLIENT_MESSAGE_UNKNOWN_TYPE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeNotFound:
		return codes.NotFound
	case CodeGMSeatTaken, CodeCharacterTaken, CodeSceneIsActive, CodeSceneInvalidTransition:
		return codes.FailedPrecondition
	case CodeUnknown:
		return codes.Internal
	default:
		return codes.InvalidArgument
	}
}
