package main

import (
	"github.com/go-gl/gl/v4.2-core/gl"
	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices"
	"github.com/hexaflex/chip8/devices/chip8/display"
)

const vertexShader = `
#version 420

in  vec3 vertPos;
in  vec2 vertTexCoord;
out vec2 fragTexCoord;

void main() {
    fragTexCoord = vertTexCoord;
    gl_Position  = vec4(vertPos, 1);
}
`

const fragmentShader = `
#version 420

uniform vec4 foreground;
uniform vec4 background;

layout (binding = 0) uniform sampler2D screen;

in  vec2 fragTexCoord;
out vec4 outputColor;

void main() {
    // Pixels are stored in the red channel: 0 is off, 1 is on.
    outputColor = mix(background, foreground, texture(screen, fragTexCoord).r);
}
`

// Pixel colors, RGBA.
var (
	foregroundColor = [4]float32{0.90, 0.85, 0.60, 1}
	backgroundColor = [4]float32{0.10, 0.10, 0.12, 1}
)

// Screen renders a framebuffer into the current OpenGL context.
// Its lifecycle is tied to the GL context: connect it only once one exists.
type Screen struct {
	buffer      *display.Buffer
	pixels      [display.Width * display.Height]byte
	shader      uint32
	vao         uint32
	vbo         uint32
	texture     uint32
	initialized bool
}

var _ devices.Device = &Screen{}

// NewScreen creates a renderer for the given framebuffer.
func NewScreen(buffer *display.Buffer) *Screen {
	return &Screen{buffer: buffer}
}

// ID returns the device identifier.
func (s *Screen) ID() devices.ID {
	return devices.NewID(devices.Manufacturer, 0x0004)
}

// Startup compiles the shaders and allocates GL resources.
func (s *Screen) Startup() error {
	var err error

	s.shader, err = compileProgram(vertexShader, fragmentShader)
	if err != nil {
		return errors.Wrapf(err, "failed to compile shaders")
	}

	gl.UseProgram(s.shader)
	gl.Uniform4fv(gl.GetUniformLocation(s.shader, glStr("foreground")), 1, &foregroundColor[0])
	gl.Uniform4fv(gl.GetUniformLocation(s.shader, glStr("background")), 1, &backgroundColor[0])

	gl.GenVertexArrays(1, &s.vao)
	gl.BindVertexArray(s.vao)

	gl.GenBuffers(1, &s.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)

	vertAttrib := uint32(gl.GetAttribLocation(s.shader, glStr("vertPos")))
	texCoordAttrib := uint32(gl.GetAttribLocation(s.shader, glStr("vertTexCoord")))

	gl.EnableVertexAttribArray(vertAttrib)
	gl.VertexAttribPointer(vertAttrib, 3, gl.FLOAT, false, 5*4, gl.PtrOffset(0))

	gl.EnableVertexAttribArray(texCoordAttrib)
	gl.VertexAttribPointer(texCoordAttrib, 2, gl.FLOAT, false, 5*4, gl.PtrOffset(3*4))

	s.texture = makeTexture()
	s.buffer.SetDirty(true)
	s.initialized = true
	return nil
}

// Shutdown releases GL resources.
func (s *Screen) Shutdown() error {
	if !s.initialized {
		return nil
	}

	s.initialized = false
	gl.DeleteTextures(1, &s.texture)
	gl.DeleteBuffers(1, &s.vbo)
	gl.DeleteVertexArrays(1, &s.vao)
	gl.DeleteProgram(s.shader)
	return nil
}

// Draw uploads the framebuffer if it changed and renders it.
func (s *Screen) Draw() {
	if !s.initialized {
		return
	}

	if s.buffer.Dirty() {
		s.buffer.Render(s.pixels[:], 0xff, 0x00)
		uploadTexture(s.texture, display.Width, display.Height, s.pixels[:])
		s.buffer.SetDirty(false)
	}

	gl.UseProgram(s.shader)
	gl.BindVertexArray(s.vao)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, s.texture)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
}

var quadVertices = []float32{
	//  X, Y, Z, U, V
	-1.0, -1.0, 0.0, 0.0, 1.0,
	1.0, -1.0, 0.0, 1.0, 1.0,
	-1.0, 1.0, 0.0, 0.0, 0.0,
	1.0, -1.0, 0.0, 1.0, 1.0,
	1.0, 1.0, 0.0, 1.0, 0.0,
	-1.0, 1.0, 0.0, 0.0, 0.0,
}
