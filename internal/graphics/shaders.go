package graphics

// maxPointLights is the number of point lights the lit shader evaluates.
const maxPointLights = 4

const (
	litVS = `#version 330
in vec3 vertexPosition;
in vec2 vertexTexCoord;
in vec3 vertexNormal;
uniform mat4 matProjection;
uniform mat4 matView;
uniform mat4 matModel;
uniform mat4 matNormal;
out vec3 fragPosition;
out vec2 fragTexCoord;
out vec3 fragNormal;
void main() {
  vec4 worldPos = matModel * vec4(vertexPosition, 1.0);
  fragPosition = worldPos.xyz;
  fragTexCoord = vertexTexCoord;
  fragNormal = mat3(matNormal) * vertexNormal;
  gl_Position = matProjection * matView * worldPos;
}
`
	// litFS: ambient, one directional light and up to four point lights with distance cut-off and
	// decay. albedoMap is raylib's white default texture for untextured materials.
	litFS = `#version 330
#define MAX_POINT 4
in vec3 fragPosition;
in vec2 fragTexCoord;
in vec3 fragNormal;
uniform sampler2D texture0;
uniform vec4 colDiffuse;
uniform vec3 viewPos;
uniform vec4 ambient;
uniform vec3 lightDir;
uniform vec3 lightColor;
uniform float pointCount;
uniform vec3 pointPos[MAX_POINT];
uniform vec3 pointColor[MAX_POINT];
uniform vec2 pointFalloff[MAX_POINT];
uniform float specularPower;
uniform float specularStrength;
out vec4 finalColor;

vec3 shade(vec3 N, vec3 V, vec3 L, vec3 radiance, vec3 albedo) {
  float NdotL = max(dot(N, L), 0.0);
  vec3 H = normalize(L + V);
  float spec = pow(max(dot(N, H), 0.0), specularPower) * specularStrength;
  return (albedo * NdotL + spec * (NdotL > 0.0 ? 1.0 : 0.0)) * radiance;
}

void main() {
  vec4 tint = texture(texture0, fragTexCoord) * colDiffuse;
  vec3 N = normalize(fragNormal);
  if (!gl_FrontFacing) N = -N;
  vec3 V = normalize(viewPos - fragPosition);
  vec3 color = ambient.rgb * tint.rgb;
  color += shade(N, V, normalize(lightDir), lightColor, tint.rgb);
  for (int i = 0; i < MAX_POINT; i++) {
    if (float(i) >= pointCount) break;
    vec3 d = pointPos[i] - fragPosition;
    float dist = length(d);
    float atten = 1.0 / max(pow(dist, pointFalloff[i].y), 0.0001);
    if (pointFalloff[i].x > 0.0) atten *= clamp(1.0 - dist / pointFalloff[i].x, 0.0, 1.0);
    color += shade(N, V, d / max(dist, 0.0001), pointColor[i] * atten, tint.rgb);
  }
  finalColor = vec4(color, tint.a);
}
`
	// Equirectangular skybox shader: samples a 2D panorama by view direction, rotated by
	// panoramaRotation.
	equirectVS = `#version 330
in vec3 vertexPosition;
uniform mat4 matProjection;
uniform mat4 matView;
uniform mat4 matModel;
out vec3 fragWorldPos;
void main() {
  vec4 worldPos = matModel * vec4(vertexPosition, 1.0);
  fragWorldPos = worldPos.xyz;
  gl_Position = matProjection * matView * worldPos;
}
`
	equirectFS = `#version 330
in vec3 fragWorldPos;
out vec4 finalColor;
uniform sampler2D skybox;
uniform vec3 cameraPosition;
uniform mat4 panoramaRotation;
void main() {
  vec3 dir = normalize(fragWorldPos - cameraPosition);
  dir = (panoramaRotation * vec4(dir, 0.0)).xyz;
  float lon = atan(dir.z, dir.x);
  float lat = asin(clamp(dir.y, -1.0, 1.0));
  float u = lon / 6.28318530718 + 0.5;
  float v = 0.5 - lat / 3.14159265359;
  finalColor = texture(skybox, vec2(u, v));
}
`
)
