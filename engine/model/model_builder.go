package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithSkin is an option builder that appends a joint hierarchy to the Model.
// Skins are indexed in the order they are added.
//
// Parameters:
//   - skin: the skin to add
//
// Returns:
//   - ModelBuilderOption: a function that applies the skin option to a model
func WithSkin(skin Skin) ModelBuilderOption {
	return func(m *model) {
		m.skins = append(m.skins, skin)
	}
}

// WithAnimations is an option builder that sets the animation clips of the Model.
//
// Parameters:
//   - animations: the animation clips to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the animations option to a model
func WithAnimations(animations []*AnimationClip) ModelBuilderOption {
	return func(m *model) {
		m.animations = animations
	}
}
