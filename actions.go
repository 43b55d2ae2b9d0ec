package main

// ActionDefinition defines an action with its default keybindings, mouse bindings, and description
type ActionDefinition struct {
	Name         string
	Keys         []string
	MouseActions []string
	Description  string
}

// actionDefinitions contains all action definitions with default keybindings, mouse bindings, and descriptions
var actionDefinitions = []ActionDefinition{
	{"exit", []string{"Escape", "KeyQ"}, []string{}, "Quit viewer"},
	{"help", []string{"Shift+Slash"}, []string{"Alt+RightClick"}, "Show/hide help"},
	{"info", []string{"KeyI"}, []string{}, "Show/hide page info"},
	{"next", []string{"Space", "KeyN", "PageDown"}, []string{"WheelDown"}, "Next spread"},
	{"previous", []string{"Shift+Space", "KeyP", "PageUp"}, []string{"WheelUp"}, "Previous spread"},
	{"step_left", []string{"ArrowLeft"}, []string{"Back"}, "Go left (next spread in RTL)"},
	{"step_right", []string{"ArrowRight"}, []string{"Forward"}, "Go right (next spread in LTR)"},
	{"click", []string{}, []string{"LeftClick"}, "Turn page by clicking a half, seek on the progress bar"},
	{"toggle_view_mode", []string{"KeyB"}, []string{"MiddleClick"}, "Toggle spread/single page view"},
	{"toggle_reading_direction", []string{"Shift+KeyB"}, []string{"Ctrl+MiddleClick"}, "Toggle reading direction (RTL ↔ LTR)"},
	{"fullscreen", []string{"Enter", "KeyF"}, []string{}, "Toggle fullscreen"},
	{"page_input", []string{"KeyG"}, []string{"Ctrl+LeftClick"}, "Go to page (enter page number)"},
	{"jump_first", []string{"Home", "Shift+Comma"}, []string{}, "Jump to first spread"},
	{"jump_last", []string{"End", "Shift+Period"}, []string{}, "Jump to last spread"},
	{"next_file", []string{"Alt+ArrowUp"}, []string{}, "Open next file in folder"},
	{"previous_file", []string{"Alt+ArrowDown"}, []string{}, "Open previous file in folder"},
	{"back_to_list", []string{"Backspace"}, []string{}, "Return to the archive list"},
	{"cycle_sort", []string{"Shift+KeyS"}, []string{"Alt+MiddleClick"}, "Cycle sort method (Natural/Simple/Entry)"},
}

// ActionExecutor maps action names to InputActions calls. It is shared by
// the keyboard and mouse binding managers.
type ActionExecutor struct{}

// NewActionExecutor creates a new ActionExecutor instance
func NewActionExecutor() *ActionExecutor {
	return &ActionExecutor{}
}

// ExecuteAction executes the given action using the InputActions interface
func (ae *ActionExecutor) ExecuteAction(action string, inputActions InputActions, inputState InputState) bool {
	switch action {
	case "exit":
		inputActions.Exit()
	case "help":
		inputActions.ToggleHelp()
	case "info":
		inputActions.ToggleInfo()
	case "next":
		inputActions.NavigateNext()
	case "previous":
		inputActions.NavigatePrevious()
	case "step_left":
		inputActions.StepLeft()
	case "step_right":
		inputActions.StepRight()
	case "click":
		inputActions.HandleClick()
	case "toggle_view_mode":
		inputActions.ToggleViewMode()
	case "toggle_reading_direction":
		inputActions.ToggleReadingDirection()
	case "fullscreen":
		inputActions.ToggleFullscreen()
	case "page_input":
		if !inputState.IsInPageInputMode() {
			inputActions.EnterPageInputMode()
		}
	case "jump_first":
		inputActions.JumpToFirst()
	case "jump_last":
		inputActions.JumpToLast()
	case "next_file":
		inputActions.OpenNextFile()
	case "previous_file":
		inputActions.OpenPreviousFile()
	case "back_to_list":
		if !inputState.CanReturnToList() {
			return false
		}
		inputActions.ReturnToList()
	case "cycle_sort":
		inputActions.CycleSortMethod()
	default:
		return false
	}

	return true
}

// globalActionExecutor is the global instance of ActionExecutor used throughout the application
var globalActionExecutor = NewActionExecutor()

// GetActionDescriptions returns a map of action names to their descriptions
func GetActionDescriptions() map[string]string {
	descriptions := make(map[string]string)
	for _, action := range actionDefinitions {
		descriptions[action.Name] = action.Description
	}
	return descriptions
}

// GetDefaultKeybindings returns a map of action names to their default keybindings
func GetDefaultKeybindings() map[string][]string {
	keybindings := make(map[string][]string)
	for _, action := range actionDefinitions {
		keybindings[action.Name] = append([]string(nil), action.Keys...)
	}
	return keybindings
}

// GetDefaultMousebindings returns a map of action names to their default mouse bindings
func GetDefaultMousebindings() map[string][]string {
	mousebindings := make(map[string][]string)
	for _, action := range actionDefinitions {
		mousebindings[action.Name] = append([]string(nil), action.MouseActions...)
	}
	return mousebindings
}

// actionOrder lists action names in definition order, for dispatch and help
func actionOrder() []string {
	names := make([]string, len(actionDefinitions))
	for i, action := range actionDefinitions {
		names[i] = action.Name
	}
	return names
}
