package colorpicker

// Palette is a named set of 16 colors shown in the palette grid.
type Palette struct {
	Name   string
	Colors [16]string
}

// Palettes holds the built-in palettes, matching the bundled theme set.
var Palettes = []Palette{
	{
		Name: "Catppuccin Mocha",
		Colors: [16]string{
			"#f5e0dc", "#f2cdcd", "#f5c2e7", "#cba6f7",
			"#f38ba8", "#eba0ac", "#fab387", "#f9e2af",
			"#a6e3a1", "#94e2d5", "#89dceb", "#74c7ec",
			"#89b4fa", "#b4befe", "#cdd6f4", "#1e1e2e",
		},
	},
	{
		Name: "Dracula",
		Colors: [16]string{
			"#282a36", "#44475a", "#f8f8f2", "#6272a4",
			"#8be9fd", "#50fa7b", "#ffb86c", "#ff79c6",
			"#bd93f9", "#ff5555", "#f1fa8c", "#282a36",
			"#21222c", "#ff6e6e", "#69ff94", "#d6acff",
		},
	},
	{
		Name: "Nord",
		Colors: [16]string{
			"#2e3440", "#3b4252", "#434c5e", "#4c566a",
			"#d8dee9", "#e5e9f0", "#eceff4", "#8fbcbb",
			"#88c0d0", "#81a1c1", "#5e81ac", "#bf616a",
			"#d08770", "#ebcb8b", "#a3be8c", "#b48ead",
		},
	},
	{
		Name: "Gruvbox Dark",
		Colors: [16]string{
			"#282828", "#cc241d", "#98971a", "#d79921",
			"#458588", "#b16286", "#689d6a", "#a89984",
			"#928374", "#fb4934", "#b8bb26", "#fabd2f",
			"#83a598", "#d3869b", "#8ec07c", "#ebdbb2",
		},
	},
	{
		Name: "Tokyo Night",
		Colors: [16]string{
			"#1a1b26", "#f7768e", "#9ece6a", "#e0af68",
			"#7aa2f7", "#bb9af7", "#7dcfff", "#a9b1d6",
			"#414868", "#ff899d", "#9fe044", "#faba4a",
			"#8db0ff", "#c7a9ff", "#a4daff", "#c0caf5",
		},
	},
}
