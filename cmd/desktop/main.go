package main

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"evaluator/pkg/compiler"
	"evaluator/pkg/engine"
	"evaluator/pkg/midi"
	"evaluator/pkg/presets"
	"evaluator/pkg/stream"
	"evaluator/pkg/utils"
)

const (
	screenWidth  = 640
	screenHeight = 400
	sampleRate   = 44100
	lineHeight   = 14
)

// Keys of the bottom two letter rows play a chromatic octave from middle C
// while the editor is in play mode.
var pianoKeys = []ebiten.Key{
	ebiten.KeyA, ebiten.KeyW, ebiten.KeyS, ebiten.KeyE, ebiten.KeyD,
	ebiten.KeyF, ebiten.KeyT, ebiten.KeyG, ebiten.KeyY, ebiten.KeyH,
	ebiten.KeyU, ebiten.KeyJ, ebiten.KeyK,
}

const baseNote = 60

var presetKeys = []ebiten.Key{
	ebiten.KeyF1, ebiten.KeyF2, ebiten.KeyF3, ebiten.KeyF4,
	ebiten.KeyF5, ebiten.KeyF6, ebiten.KeyF7, ebiten.KeyF8,
}

func noteForKey(k ebiten.Key) (byte, bool) {
	for i, pk := range pianoKeys {
		if pk == k {
			return byte(baseNote + i), true
		}
	}
	return 0, false
}

// editBuffer is the single-line program editor.
type editBuffer struct {
	runes []rune
}

func (b *editBuffer) Insert(rs []rune) {
	for _, r := range rs {
		if r >= ' ' && r < 0x7f {
			b.runes = append(b.runes, r)
		}
	}
}

func (b *editBuffer) Backspace() {
	if len(b.runes) > 0 {
		b.runes = b.runes[:len(b.runes)-1]
	}
}

func (b *editBuffer) Set(s string) { b.runes = []rune(s) }

func (b *editBuffer) String() string { return string(b.runes) }

type Game struct {
	ev       *engine.Evaluator
	bank     *presets.Bank
	edit     editBuffer
	playMode bool
	face     *text.GoXFace
	status   string
}

func NewGame(ev *engine.Evaluator, bank *presets.Bank) *Game {
	g := &Game{
		ev:   ev,
		bank: bank,
		face: text.NewGoXFace(basicfont.Face7x13),
	}
	g.edit.Set(ev.ProgramText())
	return g
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.playMode = !g.playMode
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		g.ev.SetBitDepth(g.ev.BitDepth() + 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		g.ev.SetBitDepth(g.ev.BitDepth() - 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		g.ev.SetGain(g.ev.Gain() + 5)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		g.ev.SetGain(g.ev.Gain() - 5)
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl)
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.save()
		return nil
	}

	factory := presets.Factory()
	for i, k := range presetKeys {
		if i < len(factory) && inpututil.IsKeyJustPressed(k) {
			g.load(factory[i])
		}
	}

	if g.playMode {
		g.updatePiano()
		return nil
	}

	g.edit.Insert(ebiten.AppendInputChars(nil))
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		g.edit.Backspace()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		if err := g.ev.SetProgramText(g.edit.String()); err != nil {
			g.status = "compile failed, playing fallback"
		} else {
			g.status = "compiled"
		}
	}
	return nil
}

func (g *Game) updatePiano() {
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		if note, ok := noteForKey(k); ok {
			g.ev.ProcessMidi(midi.NewNoteOn(0, note, 100))
		}
	}
	for _, k := range inpututil.AppendJustReleasedKeys(nil) {
		if note, ok := noteForKey(k); ok {
			g.ev.ProcessMidi(midi.NewNoteOff(0, note))
		}
	}
}

func (g *Game) load(p presets.Preset) {
	if err := g.ev.ApplyPreset(p); err != nil {
		g.status = fmt.Sprintf("preset %s failed to compile", p.Name)
	} else {
		g.status = "loaded " + p.Name
	}
	g.edit.Set(p.Program)
}

func (g *Game) save() {
	p := g.ev.Snapshot("desktop")
	if err := g.bank.Save(p); err != nil {
		g.status = "save failed: " + err.Error()
		return
	}
	g.status = "saved as " + p.Name
}

// statusLine summarises the parameters shown under the editor.
func statusLine(ev *engine.Evaluator, playMode bool) string {
	mode := "edit"
	if playMode {
		mode = "play"
	}
	valid := "ok"
	if !ev.ProgramIsValid() {
		valid = "invalid"
	}
	return fmt.Sprintf("[%s] bits %d  gain %.0f%%  program %s", mode, ev.BitDepth(), ev.Gain(), valid)
}

func (g *Game) drawLines(screen *ebiten.Image, lines []string, x, y float64, clr color.Color) float64 {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	op.LineSpacing = lineHeight
	text.Draw(screen, strings.Join(lines, "\n"), g.face, op)
	return y + float64(len(lines))*lineHeight
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0x10, 0x10, 0x18, 0xff})

	y := g.drawLines(screen, []string{"> " + g.edit.String() + "_"}, 8, 8, color.White)
	y = g.drawLines(screen, []string{statusLine(g.ev, g.playMode), g.status}, 8, y+lineHeight, color.RGBA{0x80, 0xc0, 0xff, 0xff})
	g.drawLines(screen, strings.Split(g.ev.Console(), "\n"), 8, y+lineHeight, color.RGBA{0xa0, 0xff, 0xa0, 0xff})

	ebitenutil.DebugPrintAt(screen, "Tab: edit/play  Enter: compile  arrows: bits/gain  F1-F8: presets  Ctrl+S: save", 8, screenHeight-20)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// startDiskSyncer flushes the preset bank to dir every interval while stop is open.
func startDiskSyncer(bank *presets.Bank, dir string, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if bank.IsDirty() {
				if err := bank.PersistTo(dir); err != nil {
					log.Printf("Failed to persist presets: %v", err)
				}
			}
		case <-stop:
			return
		}
	}
}

func main() {
	ev := engine.New()
	ev.SetSampleRate(sampleRate)

	if len(os.Args) > 1 {
		src, err := utils.ReadProgram(os.Args[1])
		if err != nil {
			log.Fatalf("Failed to read source file: %v", err)
		}
		if src, err = compiler.Preprocess(src); err != nil {
			log.Fatalf("Failed to preprocess source file: %v", err)
		}
		if err := ev.SetProgramText(src); err != nil {
			log.Printf("Program does not compile, playing fallback:\n%s", ev.Console())
		}
	}

	bank := presets.NewBank()
	dir, err := presets.DefaultDir()
	if err != nil {
		log.Fatalf("Failed to locate preset directory: %v", err)
	}
	if err := bank.LoadFrom(dir); err != nil {
		log.Printf("Failed to load presets: %v", err)
	}

	ctx := audio.NewContext(sampleRate)
	player, err := ctx.NewPlayer(stream.NewReader(ev, engine.DefaultBlockSize))
	if err != nil {
		log.Fatalf("Failed to open audio: %v", err)
	}
	player.SetBufferSize(100 * time.Millisecond)
	player.Play()

	stopSyncer := make(chan struct{})
	go startDiskSyncer(bank, dir, 3*time.Second, stopSyncer)

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Evaluator")

	if err := ebiten.RunGame(NewGame(ev, bank)); err != nil {
		log.Fatal(err)
	}

	close(stopSyncer)
	player.Close()
	if bank.IsDirty() {
		_ = bank.PersistTo(dir)
	}
}
