package core

import (
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/go-viper/mapstructure/v2"

	"w3plex/internal/types"
)

// DecodeArgs decodes the keyword arguments of an entity specification into
// out, a pointer to a struct tagged with `mapstructure`. Unknown fields are
// rejected. Entities referenced from args are assigned as is.
func DecodeArgs(args *types.Mapping, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create argument decoder").
			WithCause(err)
	}
	if err := decoder.Decode(args.ToMap()); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid constructor arguments").
			WithCause(err)
	}
	return nil
}
