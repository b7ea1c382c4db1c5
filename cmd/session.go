package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/internal/session"
	"github.com/aisentools/msfix/utils"
)

var (
	sessionAdditive bool
	sessionSelect   string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show or change the set of open scenes",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the open scenes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(nil)
		if err != nil {
			return err
		}

		open := p.Store.OpenScenes()
		if len(open) == 0 {
			fmt.Println(utils.MutedStyle.Render("No open scenes"))
			return nil
		}
		active := p.Store.ActiveScene()
		for _, src := range open {
			marker := "  "
			if src == active {
				marker = utils.GoodStyle.Render("● ")
			}
			fmt.Printf("%s%s\n", marker, src.Path)
		}
		return nil
	},
}

var sessionOpenCmd = &cobra.Command{
	Use:   "open <scene>...",
	Short: "Open scenes, optionally selecting an object in the first one",
	Long: `Open replaces the open scenes with the given ones unless --additive is set.
The first scene becomes active. With --select the object at that path is
located in the active scene and its components are listed.

Examples:
  msfix session open Assets/Scenes/Main.scene --select Player/Weapon
  msfix session open Assets/Scenes/UI.scene --additive`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: utils.CompleteFilesByExtension(sourceExtensions(scene.Scene)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(nil)
		if err != nil {
			return err
		}
		defer closeProject(p)

		mode := scene.Single
		if sessionAdditive {
			mode = scene.Additive
		}

		var first *scene.Source
		for _, arg := range args {
			rel, err := p.Rel(arg)
			if err != nil {
				return err
			}
			src, err := p.Store.OpenScene(rel, mode)
			if err != nil {
				return err
			}
			mode = scene.Additive
			if first == nil {
				first = src
			}
			fmt.Printf("📂 Opened %s\n", src.Path)
		}
		if err := p.Store.SetActive(first.Path); err != nil {
			return err
		}

		if sessionSelect != "" {
			selectObject(first, sessionSelect)
		}
		return nil
	},
}

func selectObject(src *scene.Source, objectPath string) {
	id, suggestions := session.Locate(src.Tree, objectPath, 5)
	if id < 0 {
		fmt.Println(utils.WarningStyle.Render(fmt.Sprintf("⚠️  %s not found in %s", objectPath, src.Path)))
		if len(suggestions) > 0 {
			fmt.Println("Did you mean:")
			for _, s := range suggestions {
				fmt.Printf("   %s\n", s)
			}
		}
		return
	}

	node := src.Tree.Node(id)
	state := ""
	if !src.Tree.ActiveInHierarchy(id) {
		state = utils.MutedStyle.Render(" (inactive)")
	}
	fmt.Printf("🎯 %s%s\n", src.Tree.Path(id), state)
	fmt.Println(strings.Repeat("─", 35))
	for _, slot := range node.Slots {
		switch {
		case slot.Dangling() && slot.Script != "":
			fmt.Println(utils.CriticalStyle.Render("❌ Missing script " + slot.Script))
		case slot.Dangling():
			fmt.Println(utils.CriticalStyle.Render("❌ Missing script"))
		case slot.Type != "":
			fmt.Printf("   %s\n", slot.Type)
		default:
			fmt.Printf("   script %s\n", slot.Script)
		}
	}
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionOpenCmd)

	sessionOpenCmd.Flags().BoolVar(&sessionAdditive, "additive", false, "Keep the already open scenes")
	sessionOpenCmd.Flags().StringVar(&sessionSelect, "select", "", "Object path to locate in the first scene")
}
