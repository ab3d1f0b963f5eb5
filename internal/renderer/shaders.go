package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

type Shader struct {
	vertexSource   string
	fragmentSource string
	Name           string
	program        uint32
	uniforms       *UniformCache
}

func (shader *Shader) IsCompiled() bool {
	return shader.program != 0
}

func (shader *Shader) Compile() error {
	vs, err := GenShader(shader.vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return fmt.Errorf("%s vertex shader: %w", shader.Name, err)
	}
	fs, err := GenShader(shader.fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return fmt.Errorf("%s fragment shader: %w", shader.Name, err)
	}
	program, err := GenShaderProgram(vs, fs)
	if err != nil {
		return fmt.Errorf("%s program: %w", shader.Name, err)
	}
	shader.program = program
	shader.uniforms = NewUniformCache(program)
	return nil
}

func (shader *Shader) Use() {
	gl.UseProgram(shader.program)
}

func (shader *Shader) Delete() {
	if shader.program != 0 {
		gl.DeleteProgram(shader.program)
		shader.program = 0
		shader.uniforms = nil
	}
}

const vertexHeader = `#version 410 core
layout (location = 0) in vec3 inPosition;
layout (location = 1) in vec2 inTexCoord;
layout (location = 2) in vec3 inNormal;
uniform mat4 model;
uniform mat4 view;
uniform mat4 projection;
`

var standardVertexShaderSource = vertexHeader + `
out vec3 FragPos;
out vec3 Normal;
out vec2 TexCoord;
void main() {
    vec4 worldPos = model * vec4(inPosition, 1.0);
    FragPos = worldPos.xyz;
    Normal = mat3(transpose(inverse(model))) * inNormal;
    TexCoord = inTexCoord;
    gl_Position = projection * view * worldPos;
}
` + "\x00"

var standardFragmentShaderSource = `#version 410 core
in vec3 FragPos;
in vec3 Normal;
in vec2 TexCoord;
out vec4 FragColor;

uniform vec3 baseColor;
uniform float metalness;
uniform float roughness;
uniform float opacity;
uniform vec3 cameraPos;
uniform bool hasMap;
uniform sampler2D colorMap;
uniform bool hasEnvironment;
uniform samplerCube irradianceMap;
uniform samplerCube radianceMap;

void main() {
    vec3 albedo = baseColor;
    if (hasMap) {
        albedo *= texture(colorMap, TexCoord).rgb;
    }
    vec3 n = normalize(Normal);
    vec3 v = normalize(cameraPos - FragPos);
    vec3 ambient = vec3(0.2);
    vec3 spec = vec3(0.0);
    if (hasEnvironment) {
        ambient = texture(irradianceMap, n).rgb;
        vec3 r = reflect(-v, n);
        vec3 f0 = mix(vec3(0.04), albedo, metalness);
        float fresnel = pow(1.0 - max(dot(n, v), 0.0), 5.0);
        vec3 F = f0 + (1.0 - f0) * fresnel;
        spec = texture(radianceMap, r).rgb * F * (1.0 - roughness);
    }
    vec3 color = albedo * ambient * (1.0 - metalness) + spec;
    color = color / (color + vec3(1.0));
    FragColor = vec4(pow(color, vec3(1.0 / 2.2)), opacity);
}
` + "\x00"

var waterVertexShaderSource = vertexHeader + `
uniform mat4 textureMatrix;
out vec4 mirrorCoord;
out vec4 worldPosition;
void main() {
    worldPosition = model * vec4(inPosition, 1.0);
    mirrorCoord = textureMatrix * worldPosition;
    gl_Position = projection * view * worldPosition;
}
` + "\x00"

var waterFragmentShaderSource = `#version 410 core
in vec4 mirrorCoord;
in vec4 worldPosition;
out vec4 FragColor;

uniform sampler2D mirrorSampler;
uniform sampler2D normalSampler;
uniform bool hasNormalSampler;
uniform float alpha;
uniform float time;
uniform float size;
uniform float distortionScale;
uniform vec3 sunColor;
uniform vec3 sunDirection;
uniform vec3 eye;
uniform vec3 waterColor;

vec4 getNoise(vec2 uv) {
    vec2 uv0 = (uv / 103.0) + vec2(time / 17.0, time / 29.0);
    vec2 uv1 = uv / 107.0 - vec2(time / -19.0, time / 31.0);
    vec2 uv2 = uv / vec2(8907.0, 9803.0) + vec2(time / 101.0, time / 97.0);
    vec2 uv3 = uv / vec2(1091.0, 1027.0) - vec2(time / 109.0, time / -113.0);
    vec4 noise = texture(normalSampler, uv0) +
        texture(normalSampler, uv1) +
        texture(normalSampler, uv2) +
        texture(normalSampler, uv3);
    return noise * 0.5 - 1.0;
}

void sunLight(vec3 surfaceNormal, vec3 eyeDirection, float shiny, float spec, float diffuse,
              inout vec3 diffuseColor, inout vec3 specularColor) {
    vec3 reflection = normalize(reflect(-sunDirection, surfaceNormal));
    float direction = max(0.0, dot(eyeDirection, reflection));
    specularColor += pow(direction, shiny) * sunColor * spec;
    diffuseColor += max(dot(sunDirection, surfaceNormal), 0.0) * sunColor * diffuse;
}

void main() {
    vec4 noise = hasNormalSampler ? getNoise(worldPosition.xz * size) : vec4(0.0, 0.0, 1.0, 0.0);
    vec3 surfaceNormal = normalize(noise.xzy * vec3(1.5, 1.0, 1.5));

    vec3 diffuseLight = vec3(0.0);
    vec3 specularLight = vec3(0.0);

    vec3 worldToEye = eye - worldPosition.xyz;
    vec3 eyeDirection = normalize(worldToEye);
    sunLight(surfaceNormal, eyeDirection, 100.0, 2.0, 0.5, diffuseLight, specularLight);

    float dist = length(worldToEye);
    vec2 distortion = surfaceNormal.xz * (0.001 + 1.0 / dist) * distortionScale;
    vec3 reflectionSample = vec3(texture(mirrorSampler, mirrorCoord.xy / mirrorCoord.w + distortion));

    float theta = max(dot(eyeDirection, surfaceNormal), 0.0);
    float rf0 = 0.3;
    float reflectance = rf0 + (1.0 - rf0) * pow((1.0 - theta), 5.0);
    vec3 scatter = max(0.0, dot(surfaceNormal, eyeDirection)) * waterColor;
    vec3 albedo = mix((sunColor * diffuseLight * 0.3 + scatter),
        (vec3(0.1) + reflectionSample * 0.9 + reflectionSample * specularLight), reflectance);
    FragColor = vec4(albedo, alpha);
}
` + "\x00"

var skyVertexShaderSource = vertexHeader + `
uniform vec3 sunPosition;
uniform float rayleigh;
uniform float turbidity;
uniform float mieCoefficient;
uniform vec3 up;

out vec3 vWorldPosition;
out vec3 vSunDirection;
out float vSunfade;
out vec3 vBetaR;
out vec3 vBetaM;
out float vSunE;

const float e = 2.71828182845904523536028747135266249775724709369995957;
const vec3 totalRayleigh = vec3(5.804542996261093E-6, 1.3562911419845635E-5, 3.0265902468824876E-5);
const vec3 MieConst = vec3(1.8399918514433978E14, 2.7798023919660528E14, 4.0790479543861094E14);
const float cutoffAngle = 1.6110731556870734;
const float steepness = 1.5;
const float EE = 1000.0;

float sunIntensity(float zenithAngleCos) {
    zenithAngleCos = clamp(zenithAngleCos, -1.0, 1.0);
    return EE * max(0.0, 1.0 - pow(e, -((cutoffAngle - acos(zenithAngleCos)) / steepness)));
}

vec3 totalMie(float T) {
    float c = (0.2 * T) * 10E-18;
    return 0.434 * c * MieConst;
}

void main() {
    vec4 worldPosition = model * vec4(inPosition, 1.0);
    vWorldPosition = worldPosition.xyz;
    gl_Position = projection * view * worldPosition;
    gl_Position.z = gl_Position.w;

    vSunDirection = normalize(sunPosition);
    vSunE = sunIntensity(dot(vSunDirection, up));
    vSunfade = 1.0 - clamp(1.0 - exp((sunPosition.y / 450000.0)), 0.0, 1.0);
    float rayleighCoefficient = rayleigh - (1.0 * (1.0 - vSunfade));
    vBetaR = totalRayleigh * rayleighCoefficient;
    vBetaM = totalMie(turbidity) * mieCoefficient;
}
` + "\x00"

var skyFragmentShaderSource = `#version 410 core
in vec3 vWorldPosition;
in vec3 vSunDirection;
in float vSunfade;
in vec3 vBetaR;
in vec3 vBetaM;
in float vSunE;
out vec4 FragColor;

uniform float mieDirectionalG;
uniform vec3 up;
uniform vec3 cameraPos;

const float pi = 3.141592653589793238462643383279502884197169;
const float rayleighZenithLength = 8.4E3;
const float mieZenithLength = 1.25E3;
const float sunAngularDiameterCos = 0.999956676946448443553574619906976478926848692873900859324;
const float THREE_OVER_SIXTEENPI = 0.05968310365946075;
const float ONE_OVER_FOURPI = 0.07957747154594767;

float rayleighPhase(float cosTheta) {
    return THREE_OVER_SIXTEENPI * (1.0 + pow(cosTheta, 2.0));
}

float hgPhase(float cosTheta, float g) {
    float g2 = pow(g, 2.0);
    float inverse = 1.0 / pow(1.0 - 2.0 * g * cosTheta + g2, 1.5);
    return ONE_OVER_FOURPI * ((1.0 - g2) * inverse);
}

void main() {
    vec3 direction = normalize(vWorldPosition - cameraPos);
    float zenithAngle = acos(max(0.0, dot(up, direction)));
    float inverse = 1.0 / (cos(zenithAngle) + 0.15 * pow(93.885 - ((zenithAngle * 180.0) / pi), -1.253));
    float sR = rayleighZenithLength * inverse;
    float sM = mieZenithLength * inverse;
    vec3 Fex = exp(-(vBetaR * sR + vBetaM * sM));

    float cosTheta = dot(direction, vSunDirection);
    float rPhase = rayleighPhase(cosTheta * 0.5 + 0.5);
    vec3 betaRTheta = vBetaR * rPhase;
    float mPhase = hgPhase(cosTheta, mieDirectionalG);
    vec3 betaMTheta = vBetaM * mPhase;

    vec3 Lin = pow(vSunE * ((betaRTheta + betaMTheta) / (vBetaR + vBetaM)) * (1.0 - Fex), vec3(1.5));
    Lin *= mix(vec3(1.0), pow(vSunE * ((betaRTheta + betaMTheta) / (vBetaR + vBetaM)) * Fex, vec3(1.0 / 2.0)),
        clamp(pow(1.0 - dot(up, vSunDirection), 5.0), 0.0, 1.0));

    vec3 L0 = vec3(0.1) * Fex;
    float sundisk = smoothstep(sunAngularDiameterCos, sunAngularDiameterCos + 0.00002, cosTheta);
    L0 += (vSunE * 19000.0 * Fex) * sundisk;

    vec3 texColor = (Lin + L0) * 0.04 + vec3(0.0, 0.0003, 0.00075);
    vec3 retColor = pow(texColor, vec3(1.0 / (1.2 + (1.2 * vSunfade))));
    FragColor = vec4(retColor, 1.0);
}
` + "\x00"

func newStandardShader() Shader {
	return Shader{Name: "standard", vertexSource: standardVertexShaderSource, fragmentSource: standardFragmentShaderSource}
}

func newWaterShader() Shader {
	return Shader{Name: "water", vertexSource: waterVertexShaderSource, fragmentSource: waterFragmentShaderSource}
}

func newSkyShader() Shader {
	return Shader{Name: "sky", vertexSource: skyVertexShaderSource, fragmentSource: skyFragmentShaderSource}
}
